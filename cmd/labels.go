package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/teemow/gmailcli/internal/gmail"
)

type labelOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type labelsOutput struct {
	Labels []labelOutput `json:"labels"`
	Count  int           `json:"count"`
}

func newListLabelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list-labels",
		Short: "List all labels with their IDs",
		RunE: a.runMail("list-labels", func(ctx context.Context, client *gmail.Client) (any, error) {
			labels, err := client.ListLabels(ctx)
			if err != nil {
				return nil, err
			}
			out := labelsOutput{Labels: make([]labelOutput, len(labels)), Count: len(labels)}
			for i, l := range labels {
				out.Labels[i] = labelOutput{ID: l.Id, Name: l.Name, Type: l.Type}
			}
			return out, nil
		}),
	}
}

type createdLabelOutput struct {
	Status string `json:"status"`
	ID     string `json:"id"`
	Name   string `json:"name"`
}

func newCreateLabelCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create-label",
		Short: "Create a label",
		RunE: a.runMail("create-label", func(ctx context.Context, client *gmail.Client) (any, error) {
			label, err := client.CreateLabel(ctx, name)
			if err != nil {
				return nil, err
			}
			return createdLabelOutput{Status: "created", ID: label.Id, Name: label.Name}, nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "Label name, use / for nesting (e.g. Projects/Alpha)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newDeleteLabelCmd(a *app) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "delete-label",
		Short: "Delete a label",
		RunE: a.runMail("delete-label", func(ctx context.Context, client *gmail.Client) (any, error) {
			if err := client.DeleteLabel(ctx, id); err != nil {
				return nil, err
			}
			return statusOutput{Status: "deleted", ID: id}, nil
		}),
	}

	cmd.Flags().StringVar(&id, "id", "", "Label ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
