// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/majewsky/gg/option"
	"github.com/sapcc/go-api-declarations/bininfo"
	"github.com/spf13/cobra"

	"github.com/cobaltcore-dev/cinderbridge/internal/volume"
)

// Builds the app for a command. Replaced in tests.
type appLoader func(cmd *cobra.Command, opts globalOptions) (*app, error)

func loadApp(cmd *cobra.Command, opts globalOptions) (*app, error) {
	return newApp(cmd.Context(), opts)
}

func newRootCommand() *cobra.Command {
	return newRootCommandWithLoader(loadApp)
}

func newRootCommandWithLoader(load appLoader) *cobra.Command {
	var opts globalOptions
	root := &cobra.Command{
		Use:           "cinderbridge",
		Short:         "Manage volumes through the block storage api",
		Version:       bininfo.VersionOr("rolling"),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringSliceVar(&opts.configPaths, "config", nil, "config files to load, later files override earlier ones")
	flags.StringVar(&opts.token, "token", "", "keystone token of the caller")
	flags.StringVar(&opts.tenant, "tenant", "", "project the caller acts in")
	flags.StringVar(&opts.user, "user", "", "id of the calling user")
	flags.BoolVar(&opts.admin, "admin", false, "act with admin privileges")

	withApp := func(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd, a, args)
		}
	}
	root.AddCommand(
		newListCommand(withApp),
		newShowCommand(withApp),
		newShowByNameCommand(withApp),
		newGetCommand(withApp),
		newCreateCommand(withApp),
		newUpdateCommand(withApp),
		newDeleteCommand(withApp),
		newDeleteAllCommand(withApp),
	)
	return root
}

type runWithApp = func(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newListCommand(withApp runWithApp) *cobra.Command {
	var detail bool
	var limit int
	var name, sortKey, sortDir string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List volumes visible to the caller",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			params := volume.ListParams{SortKey: sortKey, SortDir: sortDir}
			if limit > 0 {
				params.Limit = option.Some(limit)
			}
			if name != "" {
				params.Filters = map[string]string{"name": name}
			}
			if detail {
				volumes, err := a.service.Detail(cmd.Context(), a.caller, params)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), volumes)
			}
			summaries, err := a.service.Index(cmd.Context(), a.caller, params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summaries)
		}),
	}
	cmd.Flags().BoolVar(&detail, "detail", false, "show all attributes")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of volumes")
	cmd.Flags().StringVar(&name, "name", "", "only volumes with this name")
	cmd.Flags().StringVar(&sortKey, "sort-key", "", "attribute to sort by")
	cmd.Flags().StringVar(&sortDir, "sort-dir", "", "sort direction (asc, desc)")
	return cmd
}

func newShowCommand(withApp runWithApp) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id-or-locator>",
		Short: "Show a volume",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			service, id, err := a.service.Resolve(a.caller, args[0])
			if err != nil {
				return err
			}
			v, err := service.Show(cmd.Context(), a.caller, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		}),
	}
}

func newShowByNameCommand(withApp runWithApp) *cobra.Command {
	return &cobra.Command{
		Use:   "show-by-name <name>",
		Short: "Show the first volume with the given name",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			v, err := a.service.ShowByName(cmd.Context(), a.caller, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		}),
	}
}

func newGetCommand(withApp runWithApp) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "get <id-or-locator>",
		Short: "Show a volume and download its data",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			service, id, err := a.service.Resolve(a.caller, args[0])
			if err != nil {
				return err
			}
			var w io.Writer = io.Discard
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			v, err := service.Get(cmd.Context(), a.caller, id, w)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		}),
	}
	cmd.Flags().StringVar(&out, "out", "", "file to write the volume data to")
	return cmd
}

// Flags describing volume attributes for create and update.
type volumeFlags struct {
	name       string
	size       int
	properties map[string]string
	data       string
}

func (f *volumeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "display name of the volume")
	cmd.Flags().IntVar(&f.size, "size", 0, "size of the volume in GiB")
	cmd.Flags().StringToStringVar(&f.properties, "property", nil, "volume property as key=value, can be repeated")
	cmd.Flags().StringVar(&f.data, "data", "", "file with inline volume data")
}

func (f *volumeFlags) volume() volume.Volume {
	props := make(map[string]any, len(f.properties))
	for key, value := range f.properties {
		props[key] = value
	}
	return volume.Volume{DisplayName: f.name, Size: f.size, Properties: props}
}

// Apply the flags that were given on the command line to an existing
// volume. Properties are merged into the existing ones.
func (f *volumeFlags) apply(cmd *cobra.Command, v volume.Volume) volume.Volume {
	if cmd.Flags().Changed("name") {
		v.DisplayName = f.name
	}
	if cmd.Flags().Changed("size") {
		v.Size = f.size
	}
	if v.Properties == nil {
		v.Properties = make(map[string]any, len(f.properties))
	}
	for key, value := range f.properties {
		v.Properties[key] = value
	}
	return v
}

// Open the data file, if any. The returned function closes it.
func (f *volumeFlags) open() (io.Reader, func(), error) {
	if f.data == "" {
		return nil, func() {}, nil
	}
	file, err := os.Open(f.data)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { file.Close() }, nil
}

func newCreateCommand(withApp runWithApp) *cobra.Command {
	var flags volumeFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a volume",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			data, closeData, err := flags.open()
			if err != nil {
				return err
			}
			defer closeData()
			v, err := a.service.Create(cmd.Context(), a.caller, flags.volume(), data)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		}),
	}
	flags.register(cmd)
	return cmd
}

func newUpdateCommand(withApp runWithApp) *cobra.Command {
	var flags volumeFlags
	cmd := &cobra.Command{
		Use:   "update <id-or-locator>",
		Short: "Update a volume",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			service, id, err := a.service.Resolve(a.caller, args[0])
			if err != nil {
				return err
			}
			existing, err := service.Show(cmd.Context(), a.caller, id)
			if err != nil {
				return err
			}
			data, closeData, err := flags.open()
			if err != nil {
				return err
			}
			defer closeData()
			v, err := service.Update(cmd.Context(), a.caller, id, flags.apply(cmd, existing), data)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		}),
	}
	flags.register(cmd)
	return cmd
}

func newDeleteCommand(withApp runWithApp) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id-or-locator>...",
		Short: "Delete volumes",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			var errs []error
			for _, ref := range args {
				service, id, err := a.service.Resolve(a.caller, ref)
				if err == nil {
					err = service.Delete(cmd.Context(), a.caller, id)
				}
				if err != nil {
					errs = append(errs, err)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), "deleted", id)
			}
			return errors.Join(errs...)
		}),
	}
}

func newDeleteAllCommand(withApp runWithApp) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-all",
		Short: "Delete all volumes, if the volume api supports it",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if !yes {
				return errors.New("refusing to delete all volumes without --yes")
			}
			return a.service.DeleteAll(cmd.Context(), a.caller)
		}),
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting all volumes")
	return cmd
}
