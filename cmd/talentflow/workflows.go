// Package main provides the TalentFlow management CLI: importing, listing,
// validating and activating workflow definitions without the HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talentflow/automation/pkg/cmd"
	"github.com/talentflow/automation/pkg/config"
	"github.com/talentflow/automation/pkg/log"
	"github.com/talentflow/automation/pkg/services"
	"github.com/talentflow/automation/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

// withService opens persistence, builds the workflow service and runs fn,
// closing the store afterwards.
func withService(ctx context.Context, command *cli.Command, fn func(ctx context.Context, logger *slog.Logger, service *services.Workflow) error) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("cli")

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	registry := cmd.NewRegistry(logger)
	service := services.NewWorkflow(store, workflow.NewValidator(registry))

	return fn(ctx, logger, service)
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:    "import",
		Aliases: []string{"i"},
		Usage:   "Import workflow definitions from a YAML file as drafts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the workflows.yaml file",
				Required: true,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return withService(ctx, command, func(ctx context.Context, logger *slog.Logger, service *services.Workflow) error {
				definitions, err := config.LoadWorkflowFile(command.String("file"))
				if err != nil {
					return err
				}

				for _, definition := range definitions {
					created, err := service.Create(ctx, services.CreateWorkflowRequest{
						Name:          definition.Name,
						Description:   definition.Description,
						Type:          definition.Type,
						TriggerType:   definition.TriggerType,
						TriggerConfig: definition.TriggerConfig,
						Actions:       definition.Actions,
						Conditions:    definition.Conditions,
						Tags:          definition.Tags,
						Priority:      definition.Priority,
						TimeoutMs:     definition.TimeoutMs,
						MaxRetries:    definition.MaxRetries,
						ErrorHandling: definition.ErrorHandling,
						IsTemplate:    definition.IsTemplate,
						Notes:         definition.Notes,
					})
					if err != nil {
						return fmt.Errorf("failed to import workflow %q: %w", definition.Name, err)
					}

					fmt.Printf("imported %s  %s\n", created.ID, created.Name)
				}

				return nil
			})
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List stored workflows",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of workflows to print",
				Value: 50,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return withService(ctx, command, func(ctx context.Context, logger *slog.Logger, service *services.Workflow) error {
				page, err := service.List(ctx, services.ListWorkflowsRequest{
					Limit: command.Int("limit"),
				})
				if err != nil {
					return err
				}

				for _, item := range page.Workflows {
					fmt.Printf("%s  %-8s  %-10s  %s\n", item.ID, item.Status, item.TriggerType, item.Name)
				}

				fmt.Printf("%d of %d workflows\n", len(page.Workflows), page.TotalCount)

				return nil
			})
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate a workflow definition for activation",
		ArgsUsage: "<workflow-id>",
		Action: func(ctx context.Context, command *cli.Command) error {
			return withService(ctx, command, func(ctx context.Context, logger *slog.Logger, service *services.Workflow) error {
				id := command.Args().First()
				if id == "" {
					return fmt.Errorf("workflow id is required")
				}

				result, err := service.ValidateWorkflow(ctx, id)
				if err != nil {
					return err
				}

				if result.Valid {
					fmt.Println("valid")

					return nil
				}

				for _, message := range result.Errors {
					fmt.Println(message)
				}

				return fmt.Errorf("%d validation errors", len(result.Errors))
			})
		},
	}
}

func activateCommand() *cli.Command {
	return &cli.Command{
		Name:      "activate",
		Usage:     "Activate a workflow (validation gated)",
		ArgsUsage: "<workflow-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "note",
				Usage: "Audit note appended to the workflow",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return withService(ctx, command, func(ctx context.Context, logger *slog.Logger, service *services.Workflow) error {
				id := command.Args().First()
				if id == "" {
					return fmt.Errorf("workflow id is required")
				}

				activated, err := service.Toggle(ctx, id, true, command.String("note"))
				if err != nil {
					return err
				}

				fmt.Printf("activated %s  %s\n", activated.ID, activated.Name)

				return nil
			})
		},
	}
}
