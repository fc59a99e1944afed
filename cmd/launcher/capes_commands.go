package main

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"launcher/internal/app"
	"launcher/internal/commands"
	"launcher/internal/services/norisk"
)

func newCapesCommand(ctx *commandContext) *cobra.Command {
	capesCmd := &cobra.Command{
		Use:   "capes",
		Short: "Manage saved capes",
	}

	capesCmd.AddCommand(newCapesListCommand(ctx))
	capesCmd.AddCommand(newCapesSaveCommand(ctx))
	capesCmd.AddCommand(newCapesRemoveCommand(ctx))
	capesCmd.AddCommand(newCapesFavoriteCommand(ctx))
	capesCmd.AddCommand(newCapesUpdateCommand(ctx))
	capesCmd.AddCommand(newCapesTagCommand(ctx))
	capesCmd.AddCommand(newCapesBrowseCommand(ctx))

	return capesCmd
}

func newCapesListCommand(ctx *commandContext) *cobra.Command {
	var favorites bool
	var tag string
	var sortBy string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved capes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sortBy != "added" && sortBy != "name" {
				return fmt.Errorf("--sort must be added or name, got %q", sortBy)
			}
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				var list []commands.SavedCapeInfo
				var err error
				switch {
				case favorites:
					list, err = a.Commands.GetFavoriteCapes(c)
				case strings.TrimSpace(tag) != "":
					list, err = a.Commands.GetCapesByTag(c, strings.TrimSpace(tag))
				default:
					list, err = a.Commands.GetAllSavedCapes(c)
				}
				if err != nil {
					return err
				}
				if favorites && strings.TrimSpace(tag) != "" {
					list = slices.DeleteFunc(list, func(s commands.SavedCapeInfo) bool {
						return !slices.Contains(s.Tags, strings.TrimSpace(tag))
					})
				}
				sortCapes(list, sortBy)

				if asJSON {
					return writeJSON(cmd, list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No saved capes")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderCapeTable(list))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&favorites, "favorites", false, "Only list favorites")
	cmd.Flags().StringVar(&tag, "tag", "", "Only list capes carrying this tag")
	cmd.Flags().StringVar(&sortBy, "sort", "added", "Sort order: added or name")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newCapesSaveCommand(ctx *commandContext) *cobra.Command {
	var favorite bool
	var tags []string

	cmd := &cobra.Command{
		Use:   "save <hash> <name>",
		Short: "Save a cape, replacing any entry with the same hash",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				info, err := a.Commands.SaveCape(c, args[0], args[1], favorite, tags)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", info.ID, info.Name)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&favorite, "favorite", false, "Mark as favorite")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag to attach (repeatable)")
	return cmd
}

func newCapesRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <hash>",
		Short: "Remove a saved cape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				removed, err := a.Commands.RemoveSavedCape(c, args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("cape %s is not saved", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}
}

func newCapesFavoriteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <hash>",
		Short: "Toggle the favorite flag of a saved cape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				info, err := a.Commands.ToggleCapeFavorite(c, args[0])
				if err != nil {
					return err
				}
				if info == nil {
					return fmt.Errorf("cape %s is not saved", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s favorite: %s\n", info.ID, yesNo(info.Favorite))
				return nil
			})
		},
	}
}

func newCapesUpdateCommand(ctx *commandContext) *cobra.Command {
	var name string
	var favorite bool
	var tags []string

	cmd := &cobra.Command{
		Use:   "update <hash>",
		Short: "Change the name, favorite flag or tags of a saved cape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var namePtr *string
			var favPtr *bool
			var tagsPtr *[]string
			if flags.Changed("name") {
				namePtr = &name
			}
			if flags.Changed("favorite") {
				favPtr = &favorite
			}
			if flags.Changed("tags") {
				tagsPtr = &tags
			}
			if namePtr == nil && favPtr == nil && tagsPtr == nil {
				return fmt.Errorf("nothing to update; pass --name, --favorite or --tags")
			}
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				info, err := a.Commands.UpdateSavedCapeProperties(c, args[0], namePtr, favPtr, tagsPtr)
				if err != nil {
					return err
				}
				if info == nil {
					return fmt.Errorf("cape %s is not saved", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderCapeTable([]commands.SavedCapeInfo{*info}))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().BoolVar(&favorite, "favorite", false, "Favorite flag")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Replacement tag list (comma separated, empty to clear)")
	return cmd
}

func newCapesTagCommand(ctx *commandContext) *cobra.Command {
	tagCmd := &cobra.Command{
		Use:   "tag",
		Short: "Add or remove cape tags",
	}

	run := func(add bool) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				var info *commands.SavedCapeInfo
				var err error
				if add {
					info, err = a.Commands.AddTagToCape(c, args[0], args[1])
				} else {
					info, err = a.Commands.RemoveTagFromCape(c, args[0], args[1])
				}
				if err != nil {
					return err
				}
				if info == nil {
					return fmt.Errorf("cape %s is not saved", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s tags: %s\n", info.ID, formatTags(info.Tags))
				return nil
			})
		}
	}

	tagCmd.AddCommand(&cobra.Command{
		Use:   "add <hash> <tag>",
		Short: "Add a tag",
		Args:  cobra.ExactArgs(2),
		RunE:  run(true),
	})
	tagCmd.AddCommand(&cobra.Command{
		Use:   "remove <hash> <tag>",
		Short: "Remove a tag",
		Args:  cobra.ExactArgs(2),
		RunE:  run(false),
	})
	return tagCmd
}

func newCapesBrowseCommand(ctx *commandContext) *cobra.Command {
	var opts norisk.BrowseCapesOptions
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse remote capes, marking the ones already saved",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				list, err := a.Commands.BrowseCapesWithSavedInfo(c, opts)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, list)
				}
				rows := make([][]string, 0, len(list))
				for _, entry := range list {
					saved, name := "", ""
					if entry.SavedInfo != nil {
						saved = "✓"
						name = entry.SavedInfo.Name
						if entry.SavedInfo.Favorite {
							saved = "★"
						}
					}
					rows = append(rows, []string{entry.Cape.Hash, strconv.Itoa(entry.Cape.Uses), saved, name})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
					headers: []string{"Hash", "Uses", "Saved", "Name"},
					rows:    rows,
					aligns:  []columnAlignment{alignLeft, alignRight, alignCenter, alignLeft},
					caption: fmt.Sprintf("%d capes", len(list)),
				}))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&opts.Page, "page", 0, "Page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "Results per page")
	cmd.Flags().StringVar(&opts.SortBy, "sort-by", "", "Remote sort order")
	cmd.Flags().StringVar(&opts.TimeFrame, "time-frame", "", "Remote time frame filter")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func sortCapes(list []commands.SavedCapeInfo, by string) {
	if by == "name" {
		col := collate.New(language.English, collate.IgnoreCase)
		slices.SortStableFunc(list, func(a, b commands.SavedCapeInfo) int {
			return col.CompareString(a.Name, b.Name)
		})
		return
	}
	slices.SortStableFunc(list, func(a, b commands.SavedCapeInfo) int {
		return a.AddedAt.Compare(b.AddedAt)
	})
}

func renderCapeTable(list []commands.SavedCapeInfo) string {
	rows := make([][]string, 0, len(list))
	for _, c := range list {
		rows = append(rows, []string{
			c.ID,
			c.Name,
			yesNo(c.Favorite),
			formatTags(c.Tags),
			c.AddedAt.Local().Format(time.DateTime),
		})
	}
	return renderTable(tableSpec{
		headers: []string{"Hash", "Name", "Favorite", "Tags", "Added"},
		rows:    rows,
		aligns:  []columnAlignment{alignLeft, alignLeft, alignCenter, alignLeft, alignLeft},
	})
}

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ", ")
}
