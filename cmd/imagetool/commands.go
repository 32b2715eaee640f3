// cmd/imagetool/commands.go
package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/javajoker/projectstore/internal/config"
	"github.com/javajoker/projectstore/internal/database"
	"github.com/javajoker/projectstore/internal/imaging"
	"github.com/javajoker/projectstore/internal/services"
)

// imageCatalog is the part of the product service the tool needs.
type imageCatalog interface {
	ImageRefs(ctx context.Context, nameFilter string) ([]services.ImageRef, error)
	SetImageKey(ctx context.Context, ref services.ImageRef, key string) error
}

// imageProcessor is the part of the pipeline the tool needs.
type imageProcessor interface {
	Reprocess(ctx context.Context, key string) (string, bool, error)
	Backfill(ctx context.Context, key string) (bool, error)
}

type toolEnv struct {
	catalog  imageCatalog
	pipeline imageProcessor
	close    func()
}

type options struct {
	dryRun bool
	env    func() (*toolEnv, error)
}

func newRootCmd() *cobra.Command {
	opts := &options{env: openEnv}

	root := &cobra.Command{
		Use:           "imagetool",
		Short:         "Product image maintenance",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "report what would change without writing")

	root.AddCommand(
		newApplyCmd(opts),
		newTestCmd(opts),
		newBackfillCmd(opts),
	)
	return root
}

func newApplyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply-watermarks",
		Short: "Rebuild the watermark of every product, variant and gallery image from its original",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withEnv(func(env *toolEnv) error {
				return applyWatermarks(cmd.Context(), cmd.OutOrStdout(), env, "", opts.dryRun)
			})
		},
	}
}

func newTestCmd(opts *options) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "test-watermark",
		Short: "Rebuild the watermarks of a single product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withEnv(func(env *toolEnv) error {
				return applyWatermarks(cmd.Context(), cmd.OutOrStdout(), env, name, opts.dryRun)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "substring of the product name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newBackfillCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-originals",
		Short: "Copy current images without an archived original into the originals area",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withEnv(func(env *toolEnv) error {
				return backfillOriginals(cmd.Context(), cmd.OutOrStdout(), env, opts.dryRun)
			})
		},
	}
}

func (o *options) withEnv(fn func(env *toolEnv) error) error {
	env, err := o.env()
	if err != nil {
		return err
	}
	if env.close != nil {
		defer env.close()
	}
	return fn(env)
}

func openEnv() (*toolEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return nil, err
	}
	storage, err := services.NewStorageService(cfg)
	if err != nil {
		database.Close(db)
		return nil, err
	}

	return &toolEnv{
		// Rows are repointed directly; no upload hook runs.
		catalog:  services.NewProductService(db, storage, nil),
		pipeline: imaging.New(cfg.Media, storage),
		close:    func() { database.Close(db) },
	}, nil
}

func applyWatermarks(ctx context.Context, out io.Writer, env *toolEnv, nameFilter string, dryRun bool) error {
	refs, err := env.catalog.ImageRefs(ctx, nameFilter)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		fmt.Fprintln(out, "No images found.")
		return nil
	}

	var updated, failed int
	for _, ref := range refs {
		if dryRun {
			fmt.Fprintf(out, "would process %s %s (%s)\n", ref.Role, ref.Key, ref.Product)
			continue
		}

		newKey, recovered, err := env.pipeline.Reprocess(ctx, ref.Key)
		if err != nil {
			failed++
			logrus.WithError(err).WithFields(logrus.Fields{"key": ref.Key, "product": ref.Product}).Warn("Failed to reprocess image")
			continue
		}
		if newKey != ref.Key {
			if err := env.catalog.SetImageKey(ctx, ref, newKey); err != nil {
				failed++
				logrus.WithError(err).WithField("key", newKey).Error("Failed to update image reference")
				continue
			}
		}
		updated++

		source := "current file"
		if recovered {
			source = "original"
		}
		fmt.Fprintf(out, "%s %s -> %s (from %s)\n", ref.Role, ref.Key, newKey, source)
	}

	fmt.Fprintf(out, "Processed %d image(s), %d failed.\n", updated, failed)
	if failed > 0 {
		return fmt.Errorf("%d image(s) failed", failed)
	}
	return nil
}

func backfillOriginals(ctx context.Context, out io.Writer, env *toolEnv, dryRun bool) error {
	refs, err := env.catalog.ImageRefs(ctx, "")
	if err != nil {
		return err
	}

	var copied int
	for _, ref := range refs {
		if dryRun {
			fmt.Fprintf(out, "would back up %s\n", ref.Key)
			continue
		}
		ok, err := env.pipeline.Backfill(ctx, ref.Key)
		if err != nil {
			logrus.WithError(err).WithField("key", ref.Key).Warn("Failed to back up image")
			continue
		}
		if ok {
			copied++
			fmt.Fprintf(out, "backed up %s\n", ref.Key)
		}
	}

	fmt.Fprintf(out, "Backed up %d original(s).\n", copied)
	return nil
}
