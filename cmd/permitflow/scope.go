package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kalambet/permitflow/internal/intake"
	"github.com/kalambet/permitflow/internal/permit"
)

// addScopeFlags registers the flags that describe a scope of work.
func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("work-types", nil, "work types: interior, exterior, property_additions")
	cmd.Flags().StringSlice("interior", nil, "interior work items, e.g. flooring,new_bathroom")
	cmd.Flags().StringSlice("exterior", nil, "exterior work items, e.g. fencing,deck_construction")
	cmd.Flags().String("addition", "", "property addition: adu, garage_conversion, basement_attic_conversion, other")
	cmd.Flags().StringP("file", "f", "", "read the scope from a YAML or JSON file instead of flags")
}

// scopeFromFlags builds a payload from --file, or from the individual flags
// when no file is given. It does not validate.
func scopeFromFlags(cmd *cobra.Command) (permit.Payload, error) {
	file, _ := cmd.Flags().GetString("file")
	if file != "" {
		return readScopeFile(file)
	}

	workTypes, _ := cmd.Flags().GetStringSlice("work-types")
	interior, _ := cmd.Flags().GetStringSlice("interior")
	exterior, _ := cmd.Flags().GetStringSlice("exterior")
	addition, _ := cmd.Flags().GetString("addition")

	var p permit.Payload
	for _, v := range workTypes {
		p.WorkTypes = append(p.WorkTypes, permit.WorkType(v))
	}
	for _, v := range interior {
		p.InteriorWork = append(p.InteriorWork, permit.InteriorWork(v))
	}
	for _, v := range exterior {
		p.ExteriorWork = append(p.ExteriorWork, permit.ExteriorWork(v))
	}
	p.PropertyAddition = permit.PropertyAddition(addition)
	return p, nil
}

// readScopeFile parses a payload document. JSON is valid YAML, so both work.
func readScopeFile(path string) (permit.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return permit.Payload{}, fmt.Errorf("reading scope file: %w", err)
	}
	var p permit.Payload
	if err := yaml.Unmarshal(data, &p); err != nil {
		return permit.Payload{}, fmt.Errorf("parsing scope file %s: %w", path, err)
	}
	return p, nil
}

// importEntry is one project in an import file:
//
//	projects:
//	  - name: Smith kitchen
//	    location: Oakland, CA
//	    scope:
//	      workTypes: [interior]
//	      interiorWork: [flooring]
type importEntry struct {
	intake.ProjectInput `yaml:",inline"`
	Scope               *permit.Payload `yaml:"scope,omitempty"`
}

type importFile struct {
	Projects []importEntry `yaml:"projects"`
}

func readImportFile(path string) ([]importEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading import file: %w", err)
	}
	var f importFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing import file %s: %w", path, err)
	}
	if len(f.Projects) == 0 {
		return nil, fmt.Errorf("import file %s lists no projects", path)
	}
	for i, e := range f.Projects {
		if e.Name == "" || e.Location == "" {
			return nil, fmt.Errorf("project %d in %s: name and location are required", i+1, path)
		}
	}
	return f.Projects, nil
}
