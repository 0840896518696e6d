package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"oras.land/oras-go/v2/registry/remote"

	"github.com/meigma/vbf/registry"
)

type remoteOptions struct {
	plainHTTP bool
	username  string
	password  string
}

func (o *remoteOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.plainHTTP, "plain-http", false, "Use HTTP instead of HTTPS")
	cmd.Flags().StringVarP(&o.username, "username", "u", "", "Registry username (default: docker credentials)")
	cmd.Flags().StringVarP(&o.password, "password", "p", "", "Registry password or token")
}

// repository opens ref and returns it together with the tag or digest it names.
func (o *remoteOptions) repository(ref string) (*remote.Repository, string, error) {
	opts := []registry.RepositoryOption{registry.WithPlainHTTP(o.plainHTTP)}
	if o.username != "" || o.password != "" {
		opts = append(opts, registry.WithStaticCredentials(o.username, o.password))
	} else {
		opts = append(opts, registry.WithDockerConfig())
	}
	repo, err := registry.NewRepository(ref, opts...)
	if err != nil {
		return nil, "", err
	}
	if repo.Reference.Reference == "" {
		return nil, "", fmt.Errorf("%w: %q has no tag or digest", registry.ErrInvalidReference, ref)
	}
	return repo, repo.Reference.Reference, nil
}

func newPushCmd(g *globalOptions) *cobra.Command {
	var (
		ro   remoteOptions
		tags []string
	)
	cmd := &cobra.Command{
		Use:   "push ARCHIVE REF",
		Short: "Push an archive to an OCI registry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, tag, err := ro.repository(args[1])
			if err != nil {
				return err
			}
			desc, err := registry.Push(cmd.Context(), repo, tag, args[0],
				registry.PushWithTags(tags...),
				registry.PushWithLogger(g.logger(cmd)))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), desc.Digest)
			return nil
		},
	}
	ro.register(cmd)
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Additional tags")
	return cmd
}

func newPullCmd(g *globalOptions) *cobra.Command {
	var (
		ro       remoteOptions
		noVerify bool
		maxSize  int64
	)
	cmd := &cobra.Command{
		Use:   "pull REF OUTPUT",
		Short: "Pull an archive from an OCI registry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, ref, err := ro.repository(args[0])
			if err != nil {
				return err
			}
			layer, err := registry.Pull(cmd.Context(), repo, ref, args[1],
				registry.PullWithValidate(!noVerify),
				registry.PullWithMaxSize(maxSize),
				registry.PullWithLogger(g.logger(cmd)))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", layer.Digest, layer.Size)
			return nil
		},
	}
	ro.register(cmd)
	cmd.Flags().BoolVar(&noVerify, "no-validate", false, "Skip opening the archive after download")
	cmd.Flags().Int64Var(&maxSize, "max-size", 0, "Reject archives larger than this many bytes")
	return cmd
}
