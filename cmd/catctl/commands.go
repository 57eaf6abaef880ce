package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/snow-cube/paper-manager/internal/category"
)

func newListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories of the selected scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			if a.asJSON {
				return writeJSON(a, records)
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPARENT")
			for _, r := range records {
				parent := "-"
				if r.ParentID != nil {
					parent = strconv.FormatUint(uint64(*r.ParentID), 10)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", r.ID, r.Name, parent)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&a.asJSON, "json", false, "print JSON")
	return cmd
}

func newTreeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the category hierarchy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.load(cmd.Context()); err != nil {
				return err
			}
			roots := a.store.Tree()
			if a.asJSON {
				return writeJSON(a, roots)
			}

			for _, root := range roots {
				root.Walk(func(n *category.TreeNode, depth int) bool {
					fmt.Fprintf(a.out, "%s%s (%d)\n", strings.Repeat("  ", depth), n.Record.Name, n.Record.ID)
					return true
				})
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&a.asJSON, "json", false, "print JSON")
	return cmd
}

func newPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path <id>",
		Short: "Print the ancestor chain of a category, root first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.load(cmd.Context()); err != nil {
				return err
			}

			path := a.store.Path(id)
			if len(path) == 0 {
				return fmt.Errorf("category %d not found in %s", id, a.scope)
			}
			names := make([]string, len(path))
			for i, r := range path {
				names[i] = r.Name
			}
			fmt.Fprintln(a.out, strings.Join(names, " / "))
			return nil
		},
	}
}

func newNameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "name <id>...",
		Short: "Print display names for category ids (0 means uncategorized)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uint, len(args))
			for i, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids[i] = id
			}

			if a.lazy {
				// 未加载时查询会触发一次后台加载
				for _, id := range ids {
					a.store.Name(id)
				}
				a.store.Wait()
				if a.store.Status() == category.StatusFailed {
					return fmt.Errorf("load %s categories failed", a.scope)
				}
			} else if _, err := a.load(cmd.Context()); err != nil {
				return err
			}

			for _, id := range ids {
				fmt.Fprintf(a.out, "%d\t%s\n", id, a.store.Name(id))
			}
			return nil
		},
	}
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return 0, fmt.Errorf("invalid category id %q", s)
	}
	return uint(id), nil
}

func writeJSON(a *app, v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
