package sandbox

import "github.com/codebench/codebench/internal/evalmodel"

// skeleton is the minimal, buildable project layout materialized for a
// language when a sandbox is acquired.
type skeleton struct {
	// manifestName is the build-tool manifest file name (e.g. Cargo.toml).
	manifestName string
	// manifestTemplate is the manifest prefix that the Rust and Go
	// renderers append the eval set's declared dependencies plus
	// commonDependencies to; the Python and TypeScript manifests are
	// rebuilt whole by renderManifest and do not use it.
	manifestTemplate string
	// libraryPath is the single library compilation unit that
	// write_source/write_test target by default.
	libraryPath string
	// executablePath is the alternate target used when the candidate
	// defines a program entry point.
	executablePath string
	// entryPointSignatures are conservative textual markers of a program
	// entry point for this language, checked at line start.
	entryPointSignatures []string
	// commonDependencies are added to every sandbox for this language,
	// beyond whatever the EvalSet itself declares: a curated minimal set
	// covering serialization and collections.
	commonDependencies []evalmodel.Dependency
	// buildCommand/testCommand/lintCommand are argv slices run inside the
	// sandbox root.
	buildCommand []string
	testCommand  []string
	lintCommand  []string
}

var skeletons = map[evalmodel.Language]skeleton{
	evalmodel.Rust: {
		manifestName: "Cargo.toml",
		manifestTemplate: `[package]
name = "candidate"
version = "0.1.0"
edition = "2021"

[dependencies]
`,
		libraryPath:          "src/lib.rs",
		executablePath:       "src/main.rs",
		entryPointSignatures: []string{"fn main("},
		commonDependencies: []evalmodel.Dependency{
			{Name: "serde", Version: "1", Features: []string{"derive"}},
			{Name: "serde_json", Version: "1"},
		},
		buildCommand: []string{"cargo", "build", "--message-format=json"},
		testCommand:  []string{"cargo", "test", "--message-format=json"},
		lintCommand:  []string{"cargo", "clippy", "--message-format=json"},
	},
	evalmodel.Python: {
		manifestName: "pyproject.toml",
		manifestTemplate: `[project]
name = "candidate"
version = "0.1.0"
dependencies = []
`,
		libraryPath:          "candidate.py",
		executablePath:       "candidate.py",
		entryPointSignatures: []string{"if __name__ == \"__main__\":", "if __name__ == '__main__':"},
		commonDependencies: []evalmodel.Dependency{
			{Name: "pytest", Version: "*"},
		},
		buildCommand: []string{"python3", "-m", "py_compile", "candidate.py"},
		testCommand:  []string{"pytest", "--tb=short", "-q"},
		lintCommand:  []string{"pylint", "--output-format=json", "candidate.py"},
	},
	evalmodel.TypeScript: {
		manifestName: "package.json",
		manifestTemplate: `{
  "name": "candidate",
  "version": "0.1.0",
  "dependencies": {}
}
`,
		libraryPath:          "candidate.ts",
		executablePath:       "candidate.ts",
		entryPointSignatures: []string{"function main("},
		commonDependencies: []evalmodel.Dependency{
			{Name: "typescript", Version: "^5"},
		},
		buildCommand: []string{"tsc", "--noEmit"},
		testCommand:  []string{"npx", "vitest", "run"},
		lintCommand:  []string{"npx", "eslint", "--format=json", "candidate.ts"},
	},
	evalmodel.Go: {
		manifestName: "go.mod",
		manifestTemplate: `module candidate

go 1.23
`,
		libraryPath:          "candidate.go",
		executablePath:       "candidate.go",
		entryPointSignatures: []string{"func main("},
		commonDependencies: []evalmodel.Dependency{
			{Name: "github.com/stretchr/testify", Version: "v1.10.0"},
		},
		buildCommand: []string{"go", "build", "./..."},
		testCommand:  []string{"go", "test", "-json", "./..."},
		lintCommand:  []string{"golangci-lint", "run", "--out-format=json"},
	},
}
