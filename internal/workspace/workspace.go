// # internal/workspace/workspace.go
package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// MemberKind is the disjoint set spec.md §3's WorkspaceInfo allows for a
// member package.
type MemberKind string

const (
	MemberBin     MemberKind = "bin"
	MemberLib     MemberKind = "lib"
	MemberExample MemberKind = "example"
	MemberBench   MemberKind = "bench"
	MemberPackage MemberKind = "package" // Python package, no Rust crate-type analogue
)

// Member is one ordered entry in WorkspaceInfo.Members.
type Member struct {
	Name string
	Kind MemberKind
	Root string
}

// Info is spec.md §3's WorkspaceInfo: project root, detected language mix,
// ordered member list.
type Info struct {
	Root      string
	Languages []string
	Members   []Member
}

// Detect implements the project-detection collaborator interface
// (spec.md §6: "detect(root) -> WorkspaceInfo"), grounded on
// original_source's detect.rs manifest scan: a root Cargo.toml's
// [workspace.members] glob list for Rust, pyproject.toml/setup.py
// presence for Python. An unrecognized root yields an Info with no
// languages and no members; Detect never returns an error and does not
// produce a workspace_detect_failed error.
func Detect(root string) Info {
	info := Info{Root: root}

	cargoPath := filepath.Join(root, "Cargo.toml")
	if data, err := os.ReadFile(cargoPath); err == nil {
		info.Languages = append(info.Languages, "rust")
		info.Members = append(info.Members, detectRustMembers(root, data)...)
	}

	if isPythonProject(root) {
		info.Languages = append(info.Languages, "python")
		info.Members = append(info.Members, detectPythonMembers(root)...)
	}

	return info
}

type cargoManifest struct {
	Package   *cargoPackage `toml:"package"`
	Workspace *struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
}

type cargoPackage struct {
	Name string `toml:"name"`
}

func detectRustMembers(root string, manifest []byte) []Member {
	var cargo cargoManifest
	if _, err := toml.Decode(string(manifest), &cargo); err != nil {
		return nil
	}

	if cargo.Workspace == nil {
		return []Member{rustMember(root, cargo.Package)}
	}

	var members []Member
	for _, pattern := range cargo.Workspace.Members {
		for _, memberRoot := range expandMemberPattern(root, pattern) {
			memberManifest := filepath.Join(memberRoot, "Cargo.toml")
			data, err := os.ReadFile(memberManifest)
			if err != nil {
				continue
			}
			var memberCargo cargoManifest
			if _, err := toml.Decode(string(data), &memberCargo); err != nil {
				continue
			}
			members = append(members, rustMember(memberRoot, memberCargo.Package))
		}
	}
	if len(members) == 0 {
		members = []Member{rustMember(root, cargo.Package)}
	}
	return members
}

func rustMember(root string, pkg *cargoPackage) Member {
	name := ""
	if pkg != nil {
		name = pkg.Name
	}
	kind := MemberLib
	if _, err := os.Stat(filepath.Join(root, "src", "main.rs")); err == nil {
		kind = MemberBin
	}
	return Member{Name: name, Kind: kind, Root: root}
}

// expandMemberPattern resolves a Cargo workspace member glob (e.g. "crates/*")
// to concrete directories containing a Cargo.toml, mirroring detect.rs's
// expand_glob_pattern.
func expandMemberPattern(root, pattern string) []string {
	if !strings.Contains(pattern, "*") {
		full := filepath.Join(root, pattern)
		if _, err := os.Stat(filepath.Join(full, "Cargo.toml")); err == nil {
			return []string{full}
		}
		return nil
	}

	base := filepath.Join(root, strings.SplitN(pattern, "*", 2)[0])
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		candidate := filepath.Join(base, e.Name())
		if _, err := os.Stat(filepath.Join(candidate, "Cargo.toml")); err == nil {
			out = append(out, candidate)
		}
	}
	return out
}

func isPythonProject(root string) bool {
	for _, name := range []string{"pyproject.toml", "setup.py", "setup.cfg"} {
		if _, err := os.Stat(filepath.Join(root, name)); err == nil {
			return true
		}
	}
	return false
}

type pyProjectManifest struct {
	Project *struct {
		Name string `toml:"name"`
	} `toml:"project"`
	Tool *struct {
		Poetry *struct {
			Name string `toml:"name"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func detectPythonMembers(root string) []Member {
	name := filepath.Base(root)

	if data, err := os.ReadFile(filepath.Join(root, "pyproject.toml")); err == nil {
		var manifest pyProjectManifest
		if _, err := toml.Decode(string(data), &manifest); err == nil {
			if manifest.Project != nil && manifest.Project.Name != "" {
				name = manifest.Project.Name
			} else if manifest.Tool != nil && manifest.Tool.Poetry != nil && manifest.Tool.Poetry.Name != "" {
				name = manifest.Tool.Poetry.Name
			}
		}
	} else if data, err := os.ReadFile(filepath.Join(root, "setup.py")); err == nil {
		if extracted := extractSetupPyName(string(data)); extracted != "" {
			name = extracted
		}
	}

	return []Member{{Name: name, Kind: MemberPackage, Root: root}}
}

func extractSetupPyName(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line := strings.TrimSpace(line)
		if strings.HasPrefix(line, "name=") || strings.HasPrefix(line, "name =") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			value := strings.TrimSpace(parts[1])
			value = strings.Trim(value, "\"',")
			return value
		}
	}
	return ""
}
