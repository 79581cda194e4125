package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/permitflow/internal/api"
	"github.com/kalambet/permitflow/internal/config"
	"github.com/kalambet/permitflow/internal/intake"
	"github.com/kalambet/permitflow/internal/permit"
	"github.com/kalambet/permitflow/internal/storage"
	"github.com/kalambet/permitflow/internal/validate"
)

// --- classify ---

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a scope of work without a server",
	Long: `Classify a scope of work into a permit review tier. Nothing is stored.

Examples:
  permitflow classify --work-types interior --interior flooring
  permitflow classify --work-types interior,exterior --interior new_bathroom --exterior fencing
  permitflow classify --work-types property_additions --addition adu
  permitflow classify -f scope.yaml --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := scopeFromFlags(cmd)
		if err != nil {
			return err
		}
		r, err := p.Response()
		if err != nil {
			return describeInvalid(err)
		}

		d := permit.Explain(r)
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), api.ClassifyResponse{Decision: d, Details: d.Requirement.Details()})
		}
		printDecision(cmd.OutOrStdout(), d)
		return nil
	},
}

func init() {
	addScopeFlags(classifyCmd)
	classifyCmd.Flags().Bool("json", false, "print the decision as JSON")
}

// describeInvalid lists each rejected field on stderr and returns a summary.
func describeInvalid(err error) error {
	var verr *validate.Error
	if !errors.As(err, &verr) {
		return err
	}
	for field, msg := range verr.Fields {
		printWarning("%s: %s", field, msg)
	}
	return fmt.Errorf("invalid scope of work")
}

// --- project ---

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		location, _ := cmd.Flags().GetString("location")
		if name == "" || location == "" {
			return fmt.Errorf("--name and --location are required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/projects", intake.ProjectInput{Name: name, Location: location})
		if err != nil {
			return err
		}
		var p storage.Project
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), p.ID)
		printSuccess("Created project %s", p.Name)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/projects")
		if err != nil {
			return err
		}
		var projects []storage.Project
		if err := decodeJSON(resp, &projects); err != nil {
			return err
		}

		if len(projects) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No projects found.")
			return nil
		}
		for _, p := range projects {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n",
				colorize(colorCyan, p.ID),
				p.Name,
				p.Location,
			)
		}
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a project and its questionnaire",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/projects/"+args[0])
		if err != nil {
			return err
		}
		var p storage.Project
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}
		q, err := fetchQuestionnaire(cmd.Context(), client, p.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", colorize(colorBold, p.Name), p.Location)
		fmt.Fprintf(out, "  id: %s\n  created: %s\n", p.ID, p.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		if q == nil {
			fmt.Fprintln(out, "  questionnaire: not submitted")
			return nil
		}
		printDecision(out, permit.Explain(q.Responses))
		return nil
	},
}

func init() {
	projectCreateCmd.Flags().String("name", "", "project name")
	projectCreateCmd.Flags().String("location", "", "project location, e.g. city and state")
	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
}

// --- questionnaire ---

var questionnaireCmd = &cobra.Command{
	Use:     "questionnaire",
	Aliases: []string{"q"},
	Short:   "Submit and inspect questionnaires",
}

var questionnaireSubmitCmd = &cobra.Command{
	Use:   "submit <project-id>",
	Short: "Submit or replace the questionnaire of a project",
	Long: `Submit the scope-of-work questionnaire of a project. A project has at most
one questionnaire; submitting again replaces its answers.

Examples:
  permitflow questionnaire submit 3f2a... --work-types exterior --exterior roof_modifications
  permitflow questionnaire submit 3f2a... -f scope.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := scopeFromFlags(cmd)
		if err != nil {
			return err
		}
		// Validate locally for field-level messages before the round trip.
		if err := p.Validate(); err != nil {
			return describeInvalid(err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.put(cmd.Context(), "/projects/"+args[0]+"/questionnaire", p)
		if err != nil {
			return err
		}
		created := resp.StatusCode == 201
		var q storage.Questionnaire
		if err := decodeJSON(resp, &q); err != nil {
			return err
		}

		printDecision(cmd.OutOrStdout(), permit.Explain(q.Responses))
		if created {
			printSuccess("Questionnaire %s submitted", q.ID)
		} else {
			printSuccess("Questionnaire %s updated", q.ID)
		}
		return nil
	},
}

var questionnaireShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show the questionnaire of a project as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		q, err := fetchQuestionnaire(cmd.Context(), client, args[0])
		if err != nil {
			return err
		}
		if q == nil {
			printWarning("No questionnaire submitted for project %s", args[0])
			return nil
		}
		return printJSON(cmd.OutOrStdout(), q)
	},
}

var questionnaireListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all questionnaires",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/questionnaires")
		if err != nil {
			return err
		}
		var qs []storage.Questionnaire
		if err := decodeJSON(resp, &qs); err != nil {
			return err
		}

		if len(qs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No questionnaires found.")
			return nil
		}
		for _, q := range qs {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  %s\n",
				colorize(colorCyan, q.ID),
				q.ProjectID,
				colorize(tierColor(q.PermitRequirement), string(q.PermitRequirement)),
				q.UpdatedAt.Format("2006-01-02 15:04"),
			)
		}
		return nil
	},
}

func fetchQuestionnaire(ctx context.Context, client *apiClient, projectID string) (*storage.Questionnaire, error) {
	resp, err := client.get(ctx, "/projects/"+projectID+"/questionnaire")
	if err != nil {
		return nil, err
	}
	var q *storage.Questionnaire
	if err := decodeJSON(resp, &q); err != nil {
		return nil, err
	}
	return q, nil
}

func init() {
	addScopeFlags(questionnaireSubmitCmd)
	questionnaireCmd.AddCommand(questionnaireSubmitCmd)
	questionnaireCmd.AddCommand(questionnaireShowCmd)
	questionnaireCmd.AddCommand(questionnaireListCmd)
}

// --- import ---

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Create projects and submit their questionnaires from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := readImportFile(args[0])
		if err != nil {
			return err
		}
		parallel, _ := cmd.Flags().GetInt("parallel")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Importing %d projects...", len(entries))
		results, err := runImport(cmd.Context(), client, entries, parallel)
		for _, r := range results {
			if r.Project.ID == "" {
				continue
			}
			tier := "-"
			if r.Questionnaire != nil {
				tier = colorize(tierColor(r.Questionnaire.PermitRequirement), string(r.Questionnaire.PermitRequirement))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", colorize(colorCyan, r.Project.ID), r.Project.Name, tier)
		}
		if err != nil {
			return err
		}
		printSuccess("Imported %d projects", len(results))
		return nil
	},
}

type importResult struct {
	Project       storage.Project
	Questionnaire *storage.Questionnaire
}

// runImport creates every project and submits its scope with at most
// parallel requests in flight. Results keep the order of entries.
func runImport(ctx context.Context, client *apiClient, entries []importEntry, parallel int) ([]importResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if parallel <= 0 {
		parallel = 4
	}
	results := make([]importResult, len(entries))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, e := range entries {
		g.Go(func() error {
			resp, err := client.post(gctx, "/projects", e.ProjectInput)
			if err != nil {
				return err
			}
			var p storage.Project
			if err := decodeJSON(resp, &p); err != nil {
				return fmt.Errorf("creating %q: %w", e.Name, err)
			}
			res := importResult{Project: p}

			if e.Scope != nil {
				resp, err := client.put(gctx, "/projects/"+p.ID+"/questionnaire", e.Scope)
				if err != nil {
					return err
				}
				var q storage.Questionnaire
				if err := decodeJSON(resp, &q); err != nil {
					return fmt.Errorf("submitting scope of %q: %w", e.Name, err)
				}
				res.Questionnaire = &q
			}

			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	return results, g.Wait()
}

func init() {
	importCmd.Flags().Int("parallel", 4, "maximum concurrent requests")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "($"+k.EnvVar+")"))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.Path())
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configPathCmd)
	configSetCmd.Long = "Set a configuration value.\n\nValid keys:\n"
	for _, k := range config.ValidKeys() {
		configSetCmd.Long += "  " + k + "\n"
	}
}
