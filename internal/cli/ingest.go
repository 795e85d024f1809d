package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pratik-mahalle/usagepulse/internal/domain/customer"
	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
)

// ingestFile is the document accepted by the ingest command
type ingestFile struct {
	Customers []*customer.Customer `json:"customers"`
	Snapshots []*usage.Snapshot    `json:"snapshots"`
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>",
		Short: "Load customers and usage snapshots from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readIngestFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			for _, c := range doc.Customers {
				if c.ID == "" {
					return fmt.Errorf("customer without id")
				}
				if c.Status == "" {
					c.Status = customer.StatusActive
				}
				if err := opts.app.Customers.Upsert(ctx, c); err != nil {
					return fmt.Errorf("failed to store customer %s: %w", c.ID, err)
				}
			}
			for _, s := range doc.Snapshots {
				if s.CustomerID == "" || s.Timestamp.IsZero() {
					return fmt.Errorf("snapshot requires customer_id and timestamp")
				}
				if err := opts.app.Usage.Record(ctx, s); err != nil {
					return fmt.Errorf("failed to store snapshot for %s: %w", s.CustomerID, err)
				}
			}

			fmt.Fprintf(opts.out, "Ingested %d customers and %d snapshots\n", len(doc.Customers), len(doc.Snapshots))
			return nil
		},
	}
}

// readIngestFile decodes JSON, or YAML for .yaml/.yml files. YAML documents
// use the same keys as JSON.
func readIngestFile(path string) (*ingestFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var generic interface{}
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if raw, err = json.Marshal(generic); err != nil {
			return nil, fmt.Errorf("failed to convert %s: %w", path, err)
		}
	}

	var doc ingestFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &doc, nil
}
