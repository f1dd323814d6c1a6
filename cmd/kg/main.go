package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kestrelworks/kg/internal/document"
	"github.com/kestrelworks/kg/internal/extract"
	"github.com/kestrelworks/kg/internal/graph"
	"github.com/kestrelworks/kg/internal/persist"
	"github.com/kestrelworks/kg/internal/store"
	"github.com/kestrelworks/kg/internal/ui"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

func main() {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "kg",
		Short: "kg — personal knowledge graph for study documents",
		Long:  "A local CLI tool that ingests study documents, extracts recurring terminology, and accumulates it into a persistent knowledge graph scoped by subject and unit.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Init(noColor)
		},
	}

	rootCmd.Version = buildVersion()
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "graph", Title: "Graph Commands:"},
		&cobra.Group{ID: "query", Title: "Query Commands:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)

	initC := initCmd()
	initC.GroupID = "core"
	doctorC := doctorCmd()
	doctorC.GroupID = "core"

	loadC := loadCmd()
	loadC.GroupID = "graph"
	forgetC := forgetCmd()
	forgetC.GroupID = "graph"

	conceptsC := conceptsCmd()
	conceptsC.GroupID = "query"
	relatedC := relatedCmd()
	relatedC.GroupID = "query"
	statusC := statusCmd()
	statusC.GroupID = "query"

	configC := configCmd()
	configC.GroupID = "config"

	rootCmd.AddCommand(initC)
	rootCmd.AddCommand(loadC)
	rootCmd.AddCommand(forgetC)
	rootCmd.AddCommand(conceptsC)
	rootCmd.AddCommand(relatedC)
	rootCmd.AddCommand(statusC)
	rootCmd.AddCommand(doctorC)
	rootCmd.AddCommand(configC)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Initialize the KG_HOME directory",
		Long:    "Create the KG_HOME directory (~/.kg by default) with config.yaml. Run this once before using any other kg commands.",
		Example: "  kg init\n  kg init --force",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			if err := store.Init(home, force); err != nil {
				return err
			}
			ui.Success("kg initialized")
			ui.Detail("Home:", home)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reinitialize even if KG_HOME already exists")
	return cmd
}

func loadCmd() *cobra.Command {
	var subject, unit string
	cmd := &cobra.Command{
		Use:     "load --subject <subject> --unit <unit> <path>",
		Short:   "Load a study document into the knowledge graph",
		Long:    "Extract concepts from a study document and merge its contribution into the graph. Reloading an unchanged document is a no-op; a changed document is rebuilt, retracting concepts no other note sustains.",
		Example: "  kg load --subject cs --unit algorithms notes/sorting.txt",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			if err := graph.ValidateName(subject); err != nil {
				return fmt.Errorf("invalid subject: %w", err)
			}
			if err := graph.ValidateName(unit); err != nil {
				return fmt.Errorf("invalid unit: %w", err)
			}

			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("file not found: %s", path)
			}
			absPath, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("invalid path: %w", err)
			}

			text, contentHash, err := document.Read(path)
			if err != nil {
				return err
			}
			concepts := extract.Extract(text, s.Config.Extract.MinFrequency)
			ui.Logger.Info("Concepts extracted",
				"count", len(concepts), "min_frequency", s.Config.Extract.MinFrequency)

			g, err := persist.Load(s.GraphPath())
			if err != nil {
				return err
			}

			mentions := make([]graph.Mention, len(concepts))
			for i, c := range concepts {
				mentions[i] = graph.Mention{Term: c.Term, Normalized: c.Normalized}
			}
			result := g.LoadNote(graph.LoadInput{
				SourcePath:  absPath,
				Subject:     subject,
				Unit:        unit,
				ContentHash: contentHash,
				Text:        text,
				Mentions:    mentions,
			})

			if err := persist.Save(s.GraphPath(), g); err != nil {
				return err
			}

			ui.Success("Document processed")
			ui.KeyValue("Status:  ", strings.ToUpper(string(result.Action)))
			ui.KeyValue("Concepts:", fmt.Sprintf("%d", result.Concepts))
			ui.KeyValue("Edges:   ", fmt.Sprintf("%d", result.EdgesTouched))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Subject the document belongs to")
	cmd.Flags().StringVar(&unit, "unit", "", "Unit within the subject")
	cmd.MarkFlagRequired("subject")
	cmd.MarkFlagRequired("unit")
	return cmd
}

func forgetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "forget <path>",
		Short:   "Retract a document's contribution from the graph",
		Long:    "Remove a note, its edges, and every concept no other note still mentions. The document file itself is untouched.",
		Example: "  kg forget notes/sorting.txt\n  kg forget --yes notes/sorting.txt",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("invalid path: %w", err)
			}

			g, err := persist.Load(s.GraphPath())
			if err != nil {
				return err
			}

			noteID := graph.NoteID(absPath)
			if !g.HasNode(noteID) {
				ui.EmptyState(fmt.Sprintf("No note loaded from %s.", absPath))
				return nil
			}

			if !yes {
				proceed, err := ui.Confirm(fmt.Sprintf("Retract note %s and garbage-collect its concepts?", absPath))
				if err != nil {
					return err
				}
				if !proceed {
					ui.Info("Aborted")
					return nil
				}
			}

			g.RetractNote(noteID)
			if err := persist.Save(s.GraphPath(), g); err != nil {
				return err
			}
			ui.Logger.Info("Note retracted", "note", noteID)
			ui.Success("Note retracted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	return cmd
}

func conceptsCmd() *cobra.Command {
	var subject, unit string
	cmd := &cobra.Command{
		Use:     "concepts --subject <subject> --unit <unit>",
		Short:   "List concepts for a subject/unit",
		Example: "  kg concepts --subject cs --unit algorithms",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			g, err := persist.Load(s.GraphPath())
			if err != nil {
				return err
			}

			concepts, err := g.UnitConcepts(subject, unit)
			if err != nil {
				ui.EmptyState("No such unit.")
				return nil
			}

			fmt.Printf("[Subject: %s]\n", subject)
			fmt.Printf("[Unit: %s]\n", unit)
			fmt.Println(strings.Repeat("-", 40))
			for i, c := range concepts {
				fmt.Printf("%d. %s\n", i+1, c.Term)
				fmt.Printf("   normalized : %s\n", c.Normalized)
				aliases := "none"
				if len(c.Aliases) > 0 {
					aliases = strings.Join(c.Aliases, ", ")
				}
				fmt.Printf("   aliases    : %s\n", aliases)
				fmt.Println()
			}
			fmt.Println(strings.Repeat("-", 40))
			fmt.Printf("Total concepts: %d\n", len(concepts))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Subject to list")
	cmd.Flags().StringVar(&unit, "unit", "", "Unit to list")
	cmd.MarkFlagRequired("subject")
	cmd.MarkFlagRequired("unit")
	return cmd
}

func relatedCmd() *cobra.Command {
	var subject, unit string
	cmd := &cobra.Command{
		Use:     "related --subject <subject> --unit <unit> <term>",
		Short:   "Find concepts related through shared notes",
		Example: "  kg related --subject cs --unit algorithms \"machine learning\"",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			g, err := persist.Load(s.GraphPath())
			if err != nil {
				return err
			}

			term := args[0]
			// The literal query term gets the same normalization as
			// extraction, or the concept key lookup would miss.
			related, err := g.Related(subject, unit, extract.Normalize(term))
			if err != nil {
				ui.EmptyState(fmt.Sprintf("Concept not found: %s", term))
				return nil
			}
			if len(related) == 0 {
				ui.EmptyState("No related concepts found.")
				return nil
			}

			fmt.Printf("Related concepts for: %s\n", term)
			fmt.Printf("[Subject: %s / Unit: %s]\n", subject, unit)
			fmt.Println(strings.Repeat("-", 40))
			for i, r := range related {
				fmt.Printf("%d. %s (shared notes: %d)\n", i+1, r.Term, r.SharedNotes)
			}
			fmt.Println(strings.Repeat("-", 40))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Subject scope")
	cmd.Flags().StringVar(&unit, "unit", "", "Unit scope")
	cmd.MarkFlagRequired("subject")
	cmd.MarkFlagRequired("unit")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show knowledge graph summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			g, err := persist.Load(s.GraphPath())
			if err != nil {
				return err
			}

			stats := g.Summarize()
			fmt.Println("Knowledge Graph Status")
			fmt.Println(strings.Repeat("-", 30))
			fmt.Printf("Subjects : %d\n", stats.Subjects)
			fmt.Printf("Units    : %d\n", stats.Units)
			fmt.Printf("Notes    : %d\n", stats.Notes)
			fmt.Printf("Concepts : %d\n", stats.Concepts)
			fmt.Printf("Edges    : %d\n", stats.Edges)

			if len(stats.PerUnit) > 0 {
				fmt.Println("\nConcepts per unit:")
				var rows [][]string
				for _, u := range stats.PerUnit {
					rows = append(rows, []string{u.Subject, u.Unit, fmt.Sprintf("%d", u.Concepts)})
				}
				ui.Table([]string{"SUBJECT", "UNIT", "CONCEPTS"}, rows)
			}
			fmt.Println(strings.Repeat("-", 30))
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check KG_HOME and graph store integrity",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			issues := store.CheckHealth(home)

			s, err := store.Load(home)
			if err == nil {
				g, err := persist.Load(s.GraphPath())
				if err != nil {
					issues = append(issues, store.Issue{Severity: "error", Message: err.Error()})
				} else {
					for _, finding := range g.Validate() {
						issues = append(issues, store.Issue{Severity: "warning", Message: finding})
					}
				}
			}

			if len(issues) == 0 {
				ui.Success("Everything looks healthy")
				return nil
			}
			errors := 0
			for _, issue := range issues {
				if issue.Severity == "error" {
					errors++
					ui.Error(issue.Message)
				} else {
					ui.Warning(issue.Message)
				}
			}
			if errors > 0 {
				return fmt.Errorf("doctor found %d error(s)", errors)
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change kg configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the active configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			ui.KeyValue("extract.min_frequency:", fmt.Sprintf("%d", s.Config.Extract.MinFrequency))
			ui.KeyValue("graph.file:           ", s.Config.Graph.File)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Set a configuration value",
		Example: "  kg config set extract.min_frequency 3",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			if err := s.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Set %s = %s", args[0], args[1]))
			return nil
		},
	})

	return cmd
}

func openStore() (*store.Store, error) {
	s, err := store.Load(store.Home())
	if err != nil {
		return nil, fmt.Errorf("kg not initialized — run 'kg init' first: %w", err)
	}
	return s, nil
}
