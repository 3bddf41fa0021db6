// Package catalogue loads declarative task catalogues from disk into
// evalmodel.EvalSet collections, validating as it goes and accumulating
// non-fatal warnings rather than failing the whole load.
package catalogue

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/codebench/codebench/internal/evalmodel"
)

// Extension is the file suffix recognized as a task-catalogue document.
const Extension = ".toml"

// InvalidCatalogue is returned for structural errors: malformed
// documents, missing required fields, duplicate case IDs, or unknown
// fields on the set header.
type InvalidCatalogue struct {
	Path   string
	Reason string
}

func (e *InvalidCatalogue) Error() string {
	return fmt.Sprintf("invalid catalogue %s: %s", e.Path, e.Reason)
}

type rawDependency struct {
	Name     string   `toml:"name"`
	Version  string   `toml:"version"`
	Features []string `toml:"features"`
}

type rawEvalSetHeader struct {
	ID                 string          `toml:"id"`
	Name               string          `toml:"name"`
	Description        string          `toml:"description"`
	DefaultLanguage    string          `toml:"default_language"`
	DefaultTimeoutSecs int             `toml:"default_timeout_secs"`
	Dependencies       []rawDependency `toml:"dependencies"`
}

type rawExpectations struct {
	ShouldCompile     *bool    `toml:"should_compile"`
	ShouldPassTests   *bool    `toml:"should_pass_tests"`
	TestFile          string   `toml:"test_file"`
	ExpectedFunctions []string `toml:"expected_functions"`
	ExpectedTypes     []string `toml:"expected_types"`
	MaxClippyWarnings *int     `toml:"max_clippy_warnings"`
	CustomCheck       string   `toml:"custom_check"`
}

type rawCase struct {
	ID           string          `toml:"id"`
	Name         string          `toml:"name"`
	Description  string          `toml:"description"`
	Prompt       *string         `toml:"prompt"`
	Tags         []string        `toml:"tags"`
	TimeoutSecs  *int            `toml:"timeout_secs"`
	MaxTokens    *int            `toml:"max_tokens"`
	Expectations rawExpectations `toml:"expectations"`
}

type rawDocument struct {
	EvalSet rawEvalSetHeader `toml:"eval_set"`
	Cases   []rawCase        `toml:"cases"`
}

// Load reads the catalogue at path. If path is a regular file, it parses
// one document; if a directory, it enumerates every file with Extension
// in sorted, deterministic order and loads each. It returns the
// accumulated EvalSets, a list of non-fatal validation warnings
// (prefixed with the source path), and an error only for structural
// failures.
func Load(path string) ([]evalmodel.EvalSet, []string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("catalogue: stat %s: %w", path, err)
	}

	var paths []string
	if info.IsDir() {
		err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if strings.EqualFold(filepath.Ext(p), Extension) {
				paths = append(paths, p)
			}
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("catalogue: walk %s: %w", path, err)
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}

	var sets []evalmodel.EvalSet
	var warnings []string
	for _, p := range paths {
		set, setWarnings, err := loadDocument(p)
		if err != nil {
			return nil, nil, err
		}
		sets = append(sets, set)
		for _, w := range setWarnings {
			warnings = append(warnings, fmt.Sprintf("%s: %s", p, w))
		}
	}
	return sets, warnings, nil
}

func loadDocument(path string) (evalmodel.EvalSet, []string, error) {
	var doc rawDocument
	meta, err := toml.DecodeFile(path, &doc)
	if err != nil {
		return evalmodel.EvalSet{}, nil, &InvalidCatalogue{Path: path, Reason: err.Error()}
	}

	for _, key := range meta.Undecoded() {
		if key[0] == "eval_set" {
			return evalmodel.EvalSet{}, nil, &InvalidCatalogue{
				Path:   path,
				Reason: fmt.Sprintf("unknown field on set header: %s", strings.Join(key, ".")),
			}
		}
	}

	if doc.EvalSet.ID == "" {
		return evalmodel.EvalSet{}, nil, &InvalidCatalogue{Path: path, Reason: "eval_set.id is required"}
	}
	if doc.EvalSet.Name == "" {
		return evalmodel.EvalSet{}, nil, &InvalidCatalogue{Path: path, Reason: "eval_set.name is required"}
	}

	defaultLang := evalmodel.Language(doc.EvalSet.DefaultLanguage)
	if defaultLang == "" {
		defaultLang = evalmodel.Rust
	}
	if !defaultLang.Valid() {
		return evalmodel.EvalSet{}, nil, &InvalidCatalogue{
			Path: path, Reason: fmt.Sprintf("unknown default_language: %q", doc.EvalSet.DefaultLanguage),
		}
	}

	defaultTimeout := doc.EvalSet.DefaultTimeoutSecs
	if defaultTimeout == 0 {
		defaultTimeout = 30
	}

	deps := make([]evalmodel.Dependency, 0, len(doc.EvalSet.Dependencies))
	for _, d := range doc.EvalSet.Dependencies {
		deps = append(deps, evalmodel.Dependency{Name: d.Name, Version: d.Version, Features: d.Features})
	}

	var warnings []string
	seenIDs := make(map[string]bool, len(doc.Cases))
	cases := make([]evalmodel.EvalCase, 0, len(doc.Cases))
	for _, rc := range doc.Cases {
		if rc.ID == "" {
			return evalmodel.EvalSet{}, nil, &InvalidCatalogue{Path: path, Reason: "case missing required id"}
		}
		if rc.Name == "" {
			return evalmodel.EvalSet{}, nil, &InvalidCatalogue{Path: path, Reason: fmt.Sprintf("case %s missing required name", rc.ID)}
		}
		if rc.Prompt == nil {
			return evalmodel.EvalSet{}, nil, &InvalidCatalogue{Path: path, Reason: fmt.Sprintf("case %s missing required prompt", rc.ID)}
		}
		if seenIDs[rc.ID] {
			return evalmodel.EvalSet{}, nil, &InvalidCatalogue{Path: path, Reason: fmt.Sprintf("duplicate case id %q", rc.ID)}
		}
		seenIDs[rc.ID] = true

		exp := evalmodel.DefaultExpectations()
		if rc.Expectations.ShouldCompile != nil {
			exp.ShouldCompile = *rc.Expectations.ShouldCompile
		}
		if rc.Expectations.ShouldPassTests != nil {
			exp.ShouldPassTests = *rc.Expectations.ShouldPassTests
		}
		exp.TestFile = rc.Expectations.TestFile
		exp.ExpectedFunctions = rc.Expectations.ExpectedFunctions
		exp.ExpectedTypes = rc.Expectations.ExpectedTypes
		exp.MaxClippyWarnings = rc.Expectations.MaxClippyWarnings
		exp.CustomCheck = rc.Expectations.CustomCheck

		if exp.ShouldPassTests && exp.TestFile == "" {
			warnings = append(warnings, fmt.Sprintf("case %s: should_pass_tests=true with no test_file", rc.ID))
		}
		if !exp.ShouldPassTests && exp.TestFile != "" {
			warnings = append(warnings, fmt.Sprintf("case %s: should_pass_tests=false with a test_file present will not be run", rc.ID))
		}
		if strings.TrimSpace(*rc.Prompt) == "" {
			warnings = append(warnings, fmt.Sprintf("case %s: empty prompt", rc.ID))
		}
		for _, fn := range exp.ExpectedFunctions {
			if !strings.Contains(exp.TestFile, fn) {
				warnings = append(warnings, fmt.Sprintf("case %s: expected_functions entry %q does not appear in test_file", rc.ID, fn))
			}
		}
		if rc.TimeoutSecs != nil && *rc.TimeoutSecs == 0 {
			warnings = append(warnings, fmt.Sprintf("case %s: timeout_secs == 0", rc.ID))
		}

		cases = append(cases, evalmodel.EvalCase{
			ID:           rc.ID,
			Name:         rc.Name,
			Description:  rc.Description,
			Prompt:       *rc.Prompt,
			Language:     defaultLang,
			Expectations: exp,
			Tags:         rc.Tags,
			TimeoutSecs:  rc.TimeoutSecs,
			MaxTokens:    rc.MaxTokens,
		})
	}

	set := evalmodel.EvalSet{
		ID:                 doc.EvalSet.ID,
		Name:               doc.EvalSet.Name,
		Description:        doc.EvalSet.Description,
		Cases:              cases,
		DefaultLanguage:    defaultLang,
		DefaultTimeoutSecs: defaultTimeout,
		Dependencies:       deps,
	}
	if err := evalmodel.ValidateUniqueCaseIDs(set.Cases); err != nil {
		return evalmodel.EvalSet{}, nil, &InvalidCatalogue{Path: path, Reason: err.Error()}
	}
	return set, warnings, nil
}
