// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	apperrors "commerce-search-workers/internal/common/errors"
	"commerce-search-workers/internal/common/validation"
	bc "commerce-search-workers/internal/workers/cart/build-cart"
	sc "commerce-search-workers/internal/workers/data-access/search-catalog"
	cs "commerce-search-workers/internal/workers/search/commerce-search"
	iq "commerce-search-workers/internal/workers/search/interpret-query"
	rr "commerce-search-workers/internal/workers/search/rerank-results"
	"commerce-search-workers/pkg/registry"
)

const registryVersion = "1.0.0"

func main() {
	generateCmd := flag.NewFlagSet("generate", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	genPath := generateCmd.String("path", "configs/activity-registry.json", "Path to registry file")

	updPath := updateCmd.String("path", "configs/activity-registry.json", "Path to registry file")
	idUpdate := updateCmd.String("id", "", "Activity ID to update")
	field := updateCmd.String("field", "", "Field to update (status, version, displayName, description)")
	value := updateCmd.String("value", "", "New value for the field")

	valPath := validateCmd.String("path", "configs/activity-registry.json", "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		generateCmd.Parse(os.Args[2:])
		reg, err := build()
		if err != nil {
			fail("Error building registry", err)
		}
		if existing, err := registry.LoadRegistry(*genPath); err == nil {
			carryOver(reg, existing)
		}
		if err := registry.SaveRegistry(reg, *genPath); err != nil {
			fail("Error writing registry", err)
		}
		fmt.Printf("Wrote %d activities to %s\n", len(reg.Activities), *genPath)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateActivity(*updPath, *idUpdate, *field, *value); err != nil {
			fail("Error updating activity", err)
		}
		fmt.Printf("Updated activity %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateRegistry(*valPath); err != nil {
			fail("Registry validation failed", err)
		}
		fmt.Println("Registry validation passed.")

	case "help":
		fallthrough
	default:
		help()
	}
}

func fail(msg string, err error) {
	fmt.Printf("%s: %v\n", msg, err)
	os.Exit(1)
}

type definition struct {
	id, displayName, description, category string
	taskType                               string
	schema                                 validation.JSONSchema
	timeout                                time.Duration
	errorCodes                             []apperrors.ErrorCode
	tags                                   []string
}

func definitions() []definition {
	return []definition{
		{
			id:          iq.TaskType,
			displayName: "Interpret Query",
			description: "Extracts price, distance, location, dietary, cuisine and quality entities from query text and builds retrieval filters",
			category:    "search",
			taskType:    iq.TaskType,
			schema:      iq.GetInputSchema(iq.LoadConfig().MaxQueryLength),
			timeout:     iq.LoadConfig().Timeout,
			errorCodes:  []apperrors.ErrorCode{apperrors.ErrCodeInvalidQueryInput},
			tags:        []string{"nlp", "filters"},
		},
		{
			id:          sc.TaskType,
			displayName: "Search Catalog",
			description: "Retrieves item candidates or resolves a store by name from the catalog indices",
			category:    "data-access",
			taskType:    sc.TaskType,
			schema:      sc.GetInputSchema(),
			timeout:     sc.LoadConfig().Timeout,
			errorCodes: []apperrors.ErrorCode{
				apperrors.ErrCodeInvalidQueryInput,
				apperrors.ErrCodeSearchQueryFailed,
				apperrors.ErrCodeSearchTimeout,
				apperrors.ErrCodeIndexNotFound,
				apperrors.ErrCodeElasticsearchConnectionFailed,
			},
			tags: []string{"elasticsearch", "retrieval"},
		},
		{
			id:          rr.TaskType,
			displayName: "Rerank Results",
			description: "Scores candidates on text, CTR, rating, popularity, recency and proximity, then caps results per store and category",
			category:    "search",
			taskType:    rr.TaskType,
			schema:      rr.GetInputSchema(),
			timeout:     rr.LoadConfig().Timeout,
			errorCodes:  []apperrors.ErrorCode{apperrors.ErrCodeInvalidQueryInput},
			tags:        []string{"ranking", "diversity"},
		},
		{
			id:          cs.TaskType,
			displayName: "Commerce Search",
			description: "Runs interpretation, retrieval, reranking and diversification in one step",
			category:    "search",
			taskType:    cs.TaskType,
			schema:      cs.GetInputSchema(cs.LoadConfig().MaxQueryLength),
			timeout:     cs.LoadConfig().Timeout,
			errorCodes: []apperrors.ErrorCode{
				apperrors.ErrCodeInvalidQueryInput,
				apperrors.ErrCodeSearchQueryFailed,
				apperrors.ErrCodeSearchTimeout,
				apperrors.ErrCodeIndexNotFound,
			},
			tags: []string{"pipeline"},
		},
		{
			id:          bc.TaskType,
			displayName: "Build Cart",
			description: "Fuzzy-matches extracted cart items against the catalog and returns a priced cart with clarifications",
			category:    "cart",
			taskType:    bc.TaskType,
			schema:      bc.GetInputSchema(bc.LoadConfig().MaxItems),
			timeout:     bc.LoadConfig().Timeout,
			errorCodes:  []apperrors.ErrorCode{apperrors.ErrCodeInvalidCartInput},
			tags:        []string{"cart", "fuzzy-match"},
		},
	}
}

// build derives the registry from the worker packages so the file cannot
// drift from the code.
func build() (*registry.ActivityRegistry, error) {
	reg := &registry.ActivityRegistry{
		Version:     registryVersion,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	}

	for _, d := range definitions() {
		schema, err := json.Marshal(d.schema)
		if err != nil {
			return nil, fmt.Errorf("marshal %s schema: %w", d.id, err)
		}

		codes := make([]string, len(d.errorCodes))
		retries := 0
		for i, c := range d.errorCodes {
			codes[i] = apperrors.BPMNErrorMapping[c]
			retries = max(retries, apperrors.GetRetryCount(c))
		}

		reg.Activities = append(reg.Activities, registry.Activity{
			ID:                   d.id,
			DisplayName:          d.displayName,
			Description:          d.description,
			Category:             d.category,
			Version:              registryVersion,
			TaskType:             d.taskType,
			ImplementationStatus: "completed",
			InputSchema:          schema,
			ErrorCodes:           codes,
			Timeout:              d.timeout.String(),
			Retries:              retries,
			Tags:                 d.tags,
		})
	}
	return reg, nil
}

// carryOver keeps hand-edited status and version values across regeneration.
func carryOver(reg, existing *registry.ActivityRegistry) {
	for i := range reg.Activities {
		if old, ok := existing.Find(reg.Activities[i].TaskType); ok {
			if old.ImplementationStatus != "" {
				reg.Activities[i].ImplementationStatus = old.ImplementationStatus
			}
			if old.Version != "" {
				reg.Activities[i].Version = old.Version
			}
		}
	}
}

func updateActivity(path, id, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	found := false
	for i := range reg.Activities {
		if reg.Activities[i].ID != id {
			continue
		}
		found = true
		switch field {
		case "status":
			reg.Activities[i].ImplementationStatus = value
		case "version":
			reg.Activities[i].Version = value
		case "displayName":
			reg.Activities[i].DisplayName = value
		case "description":
			reg.Activities[i].Description = value
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		break
	}

	if !found {
		return fmt.Errorf("activity with ID %s not found", id)
	}
	if err := reg.Validate(); err != nil {
		return err
	}

	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return registry.SaveRegistry(reg, path)
}

func validateRegistry(path string) error {
	reg, err := registry.LoadRegistry(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("registry %s not found, run 'registry-updater generate -path %s' first: %w", path, path, err)
	}
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return err
	}

	want, err := build()
	if err != nil {
		return err
	}
	if drift := reg.Diff(want); len(drift) > 0 {
		return fmt.Errorf("registry out of date, run generate: %v", drift)
	}

	fmt.Printf("Found %d activities.\n", len(reg.Activities))
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  generate  Rebuild the registry from the worker packages
  update    Update an existing activity's field
  validate  Validate the registry file and check it matches the code
  help      Show this help message

Examples:
  registry-updater generate -path configs/activity-registry.json
  registry-updater update -id build-cart -field status -value verified
  registry-updater validate -path configs/activity-registry.json

Use 'registry-updater <command> -h' for more information about a command.
`)
}
