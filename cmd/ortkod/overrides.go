package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"ortkod/internal/pipeline"
	"ortkod/internal/storage"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func newRulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage order number rules",
	}

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			rules, err := db.ListRules(cmd.Context(), !all)
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tPRIORITY\tACTIVE\tPATTERN\tFORMAT")
			for _, r := range rules {
				fmt.Fprintf(w, "%d\t%d\t%t\t%s\t%s\n", r.ID, r.Priority, r.IsActive, r.RegexPattern, r.OutputFormat)
			}
			return errors.WithStack(w.Flush())
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include inactive rules")

	var pattern, format string
	var priority int
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an active rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.ValidatePattern(pattern); err != nil {
				return err
			}
			db, err := a.database()
			if err != nil {
				return err
			}
			rule, err := db.CreateRule(cmd.Context(), pattern, format, priority)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created rule %d\n", rule.ID)
			return nil
		},
	}
	add.Flags().StringVar(&pattern, "pattern", "", "regular expression, group 1 is the model")
	add.Flags().StringVar(&format, "format", "", "output format containing {model}")
	add.Flags().IntVar(&priority, "priority", 0, "lower runs first")
	_ = add.MarkFlagRequired("pattern")
	_ = add.MarkFlagRequired("format")

	setActive := func(use, short string, active bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " ID",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return errors.Errorf("invalid rule id %q", args[0])
				}
				db, err := a.database()
				if err != nil {
					return err
				}
				if _, err := db.UpdateRule(cmd.Context(), id, storage.RulePatch{IsActive: &active}); err != nil {
					if errors.Is(err, storage.ErrNotFound) {
						return errors.Errorf("rule %d not found", id)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rule %d active=%t\n", id, active)
				return nil
			},
		}
	}

	var file string
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load rules from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(file)
			if err != nil {
				return errors.WithStack(err)
			}
			rules, err := parseRuleFile(content)
			if err != nil {
				return errors.Errorf("%s: %w", file, err)
			}
			db, err := a.database()
			if err != nil {
				return err
			}
			n, err := db.ImportRules(cmd.Context(), rules)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rules\n", n)
			return nil
		},
	}
	importCmd.Flags().StringVarP(&file, "file", "f", "", "YAML rule file")
	_ = importCmd.MarkFlagRequired("file")

	cmd.AddCommand(
		list,
		add,
		setActive("disable", "Soft-disable a rule", false),
		setActive("enable", "Re-enable a rule", true),
		importCmd,
	)
	return cmd
}

func newAbbreviationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "abbreviations",
		Short: "Manage manual abbreviations keyed by order number",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List manual abbreviations",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := a.database()
				if err != nil {
					return err
				}
				items, err := db.ListManualAbbreviations(cmd.Context())
				if err != nil {
					return err
				}
				w := newTable(cmd.OutOrStdout())
				fmt.Fprintln(w, "ORDER NUMBER\tABBREVIATION\tCREATED")
				for _, it := range items {
					fmt.Fprintf(w, "%s\t%s\t%s\n", it.OrderNumber, it.Abbreviation, it.CreatedAt)
				}
				return errors.WithStack(w.Flush())
			},
		},
		&cobra.Command{
			Use:   "add ORDER_NUMBER ABBREVIATION",
			Short: "Add or update a manual abbreviation",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := a.database()
				if err != nil {
					return err
				}
				if err := db.UpsertManualAbbreviation(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s -> %s\n", args[0], args[1])
				return nil
			},
		},
		deleteCmd(a, "ORDER_NUMBER", "manual abbreviation", func(db *storage.DB) deleteFunc { return db.DeleteManualAbbreviation }),
	)
	return cmd
}

func newReplacementsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replacements",
		Short: "Manage order number replacements",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List order number replacements",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := a.database()
				if err != nil {
					return err
				}
				items, err := db.ListOrderReplacements(cmd.Context())
				if err != nil {
					return err
				}
				w := newTable(cmd.OutOrStdout())
				fmt.Fprintln(w, "ORIGINAL\tREPLACEMENT\tCREATED")
				for _, it := range items {
					fmt.Fprintf(w, "%s\t%s\t%s\n", it.OriginalOrderNumber, it.ReplacementOrderNumber, it.CreatedAt)
				}
				return errors.WithStack(w.Flush())
			},
		},
		&cobra.Command{
			Use:   "add ORIGINAL REPLACEMENT",
			Short: "Add or update a replacement",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := a.database()
				if err != nil {
					return err
				}
				if err := db.UpsertOrderReplacement(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s -> %s\n", args[0], args[1])
				return nil
			},
		},
		deleteCmd(a, "ORIGINAL", "replacement", func(db *storage.DB) deleteFunc { return db.DeleteOrderReplacement }),
	)
	return cmd
}

func newExclusionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exclusions",
		Short: "Manage excluded order numbers",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List excluded order numbers",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := a.database()
				if err != nil {
					return err
				}
				items, err := db.ListExclusions(cmd.Context())
				if err != nil {
					return err
				}
				w := newTable(cmd.OutOrStdout())
				fmt.Fprintln(w, "ORDER NUMBER\tCREATED")
				for _, it := range items {
					fmt.Fprintf(w, "%s\t%s\n", it.OrderNumber, it.CreatedAt)
				}
				return errors.WithStack(w.Flush())
			},
		},
		&cobra.Command{
			Use:   "add ORDER_NUMBER",
			Short: "Exclude an order number from output",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := a.database()
				if err != nil {
					return err
				}
				created, err := db.AddExclusion(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !created {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is already excluded\n", args[0])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "excluded %s\n", args[0])
				return nil
			},
		},
		deleteCmd(a, "ORDER_NUMBER", "exclusion", func(db *storage.DB) deleteFunc { return db.DeleteExclusion }),
	)
	return cmd
}

type deleteFunc func(ctx context.Context, key string) (bool, error)

func deleteCmd(a *app, arg, what string, pick func(db *storage.DB) deleteFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete " + arg,
		Short: "Delete a " + what,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			deleted, err := pick(db)(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return errors.Errorf("%s %q not found", what, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", what, args[0])
			return nil
		},
	}
}
