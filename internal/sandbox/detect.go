package sandbox

// ABOUTME: Language and framework detection over bundles and plan hints.
// ABOUTME: Closed enumerations; unknown values become an unsupported branch,
// ABOUTME: never a silent table miss.

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/drydock-dev/drydock/internal/runtime"
)

// Language is the closed set of supported language families.
type Language string

const (
	LangPython     Language = "python"
	LangNode       Language = "node"
	LangTypeScript Language = "typescript"
)

// Mode selects between one-shot execution policy and preview policy.
// Execution rejects front-end-only bundles; preview hosts their dev
// servers.
type Mode int

const (
	ModeExecute Mode = iota
	ModePreview
)

// CPU cap: half a core, expressed in daemon scheduler units.
const (
	cpuPeriod = 100000
	cpuQuota  = 50000
)

// ParseLanguage normalizes a caller-supplied language name.
func ParseLanguage(s string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "python":
		return LangPython, true
	case "javascript", "js", "node", "node.js", "nodejs":
		return LangNode, true
	case "typescript", "ts":
		return LangTypeScript, true
	}
	return "", false
}

// Display returns the human name used in messages.
func (l Language) Display() string {
	switch l {
	case LangPython:
		return "Python"
	case LangTypeScript:
		return "TypeScript"
	default:
		return "Node.js"
	}
}

// Image returns the base container image for the language.
func (l Language) Image() string {
	if l == LangPython {
		return "python:3.11-slim"
	}
	// node:18-slim over alpine for native module compatibility.
	return "node:18-slim"
}

// Limits returns the fixed resource policy for the language. The Node
// family gets more memory for webpack and friends.
func (l Language) Limits() runtime.ResourceLimits {
	mem := int64(512 * 1024 * 1024)
	if l.nodeFamily() {
		mem = 1024 * 1024 * 1024
	}
	return runtime.ResourceLimits{
		MemoryBytes: mem,
		CPUPeriod:   cpuPeriod,
		CPUQuota:    cpuQuota,
	}
}

func (l Language) nodeFamily() bool {
	return l == LangNode || l == LangTypeScript
}

// Framework is the closed set of previewable web frameworks.
type Framework string

const (
	FrameworkFastAPI   Framework = "fastapi"
	FrameworkFlask     Framework = "flask"
	FrameworkDjango    Framework = "django"
	FrameworkStreamlit Framework = "streamlit"
	FrameworkGradio    Framework = "gradio"
	FrameworkExpress   Framework = "express"
	FrameworkNext      Framework = "next.js"
	FrameworkReact     Framework = "react"
	FrameworkVue       Framework = "vue"
	FrameworkAngular   Framework = "angular"
	FrameworkNuxt      Framework = "nuxt"
	FrameworkKoa       Framework = "koa"
	FrameworkHapi      Framework = "hapi"
)

// frameworkPorts maps each framework to the port its dev server
// conventionally listens on inside the container.
var frameworkPorts = map[Framework]int{
	FrameworkFastAPI:   8000,
	FrameworkFlask:     5000,
	FrameworkDjango:    8000,
	FrameworkStreamlit: 8501,
	FrameworkGradio:    7860,
	FrameworkExpress:   3000,
	FrameworkNext:      3000,
	FrameworkReact:     3000,
	FrameworkVue:       8080,
	FrameworkAngular:   4200,
	FrameworkNuxt:      3000,
	FrameworkKoa:       3000,
	FrameworkHapi:      3000,
}

// ParseFramework normalizes a caller-supplied framework name.
func ParseFramework(s string) (Framework, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fastapi":
		return FrameworkFastAPI, true
	case "flask":
		return FrameworkFlask, true
	case "django":
		return FrameworkDjango, true
	case "streamlit":
		return FrameworkStreamlit, true
	case "gradio":
		return FrameworkGradio, true
	case "express":
		return FrameworkExpress, true
	case "next", "nextjs", "next.js":
		return FrameworkNext, true
	case "react":
		return FrameworkReact, true
	case "vue":
		return FrameworkVue, true
	case "angular":
		return FrameworkAngular, true
	case "nuxt":
		return FrameworkNuxt, true
	case "koa":
		return FrameworkKoa, true
	case "hapi":
		return FrameworkHapi, true
	}
	return "", false
}

// InternalPort returns the port the framework's server binds inside
// the container.
func (f Framework) InternalPort() int {
	if p, ok := frameworkPorts[f]; ok {
		return p
	}
	return 8000
}

// SlowInstall reports whether the first dependency install typically
// dominates startup (multi-minute npm installs).
func (f Framework) SlowInstall() bool {
	switch f {
	case FrameworkReact, FrameworkNext, FrameworkVue, FrameworkAngular, FrameworkNuxt:
		return true
	}
	return false
}

// frontendPatterns mark package manifests of client-rendered UI projects.
// Those have no server process worth running one-shot; only preview mode
// can host them.
var frontendPatterns = []string{"react", "next", "vue", "angular", "svelte", "gatsby"}

// frontendOnly reports whether the bundle's package.json names a
// front-end framework.
func frontendOnly(b Bundle) bool {
	pkg, ok := b.Files["package.json"]
	if !ok {
		return false
	}
	lower := strings.ToLower(pkg)
	for _, pattern := range frontendPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// FrontendFramework reports whether a declared framework name matches
// the front-end-only pattern set.
func FrontendFramework(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range frontendPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// DetectLanguage infers the bundle's primary language: plan hint first,
// then a file-extension census. In execution mode a front-end-only
// manifest disqualifies the bundle outright, plan or no plan.
func DetectLanguage(b Bundle, plan *Plan, mode Mode) (Language, bool) {
	if mode == ModeExecute && frontendOnly(b) {
		return "", false
	}

	if plan != nil {
		if lang, ok := ParseLanguage(plan.Language); ok {
			return lang, true
		}
	}

	if anyFileWithExt(b.Files, ".py") {
		return LangPython, true
	}

	switch mode {
	case ModeExecute:
		if hasFile(b.Files, "package.json") || anyFileWithExt(b.Files, ".js", ".mjs", ".ts", ".tsx") {
			return LangNode, true
		}
	case ModePreview:
		if hasFile(b.Files, "package.json") || anyFileWithExt(b.Files, ".js") {
			return LangNode, true
		}
	}

	return "", false
}

// ExecutionSupported reports whether one-shot execution can handle the
// bundle.
func ExecutionSupported(b Bundle, plan *Plan) bool {
	_, ok := DetectLanguage(b, plan, ModeExecute)
	return ok
}

// DetectFramework infers the web framework: plan hint, then dependency
// manifests, then source imports. A plan hint outside the closed set
// falls through to the file heuristics.
func DetectFramework(b Bundle, plan *Plan) (Framework, bool) {
	if plan != nil && plan.Framework != "" {
		if fw, ok := ParseFramework(plan.Framework); ok {
			return fw, true
		}
	}

	files := b.Files

	if req, ok := files["requirements.txt"]; ok {
		lower := strings.ToLower(req)
		for _, fw := range []Framework{FrameworkFastAPI, FrameworkFlask, FrameworkDjango, FrameworkStreamlit, FrameworkGradio} {
			if strings.Contains(lower, string(fw)) {
				return fw, true
			}
		}
	}

	if fw, ok := frameworkFromPackageJSON(files); ok {
		return fw, true
	}

	// Streamlit/Gradio apps often carry no requirements file at all.
	for _, name := range sortedNames(files) {
		if !strings.HasSuffix(name, ".py") {
			continue
		}
		content := files[name]
		if strings.Contains(content, "import streamlit") || strings.Contains(content, "from streamlit") {
			return FrameworkStreamlit, true
		}
		if strings.Contains(content, "import gradio") || strings.Contains(content, "from gradio") {
			return FrameworkGradio, true
		}
	}

	return "", false
}

// frameworkFromPackageJSON checks dependencies and devDependencies for
// known framework packages. Order matters: next depends on react, so
// next must win.
func frameworkFromPackageJSON(files map[string]string) (Framework, bool) {
	raw, ok := files["package.json"]
	if !ok {
		return "", false
	}

	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal([]byte(raw), &pkg); err != nil {
		return "", false
	}

	deps := make(map[string]bool, len(pkg.Dependencies)+len(pkg.DevDependencies))
	for name := range pkg.Dependencies {
		deps[name] = true
	}
	for name := range pkg.DevDependencies {
		deps[name] = true
	}

	switch {
	case deps["next"]:
		return FrameworkNext, true
	case deps["express"]:
		return FrameworkExpress, true
	case deps["react"] || deps["react-scripts"]:
		return FrameworkReact, true
	case deps["vue"] || deps["@vue/cli-service"]:
		return FrameworkVue, true
	case deps["@angular/core"]:
		return FrameworkAngular, true
	case deps["nuxt"]:
		return FrameworkNuxt, true
	case deps["koa"]:
		return FrameworkKoa, true
	case deps["hapi"] || deps["@hapi/hapi"]:
		return FrameworkHapi, true
	}

	return "", false
}

// Previewable reports whether the bundle is a hostable web application.
func Previewable(b Bundle, plan *Plan) bool {
	_, ok := DetectFramework(b, plan)
	return ok
}

// EntryFile resolves the file to execute in one-shot mode.
func EntryFile(b Bundle, lang Language) (string, bool) {
	files := b.Files
	names := sortedNames(files)

	if lang == LangPython {
		for _, candidate := range []string{"main.py", "app.py", "run.py"} {
			if hasFile(files, candidate) {
				return candidate, true
			}
		}
		for _, name := range names {
			if strings.HasSuffix(name, ".py") && !strings.HasPrefix(name, "test_") && name != "__init__.py" {
				return name, true
			}
		}
		return "", false
	}

	// Node family: the manifest's main field wins when it names a
	// bundled file (this is also how TypeScript entries are declared).
	if raw, ok := files["package.json"]; ok {
		var pkg struct {
			Main string `json:"main"`
		}
		if err := json.Unmarshal([]byte(raw), &pkg); err == nil && pkg.Main != "" && hasFile(files, pkg.Main) {
			return pkg.Main, true
		}
	}

	for _, candidate := range []string{"index.js", "main.js", "app.js", "server.js"} {
		if hasFile(files, candidate) {
			return candidate, true
		}
	}
	for _, name := range names {
		if strings.HasSuffix(name, ".js") && !strings.HasPrefix(name, "test") {
			return name, true
		}
	}
	return "", false
}

// previewMain resolves the Python file a preview server boots from.
// Always returns something; the container surfaces a missing file far
// better than a detection error would.
func previewMain(files map[string]string) string {
	for _, candidate := range []string{"main.py", "app.py", "server.py", "run.py"} {
		if hasFile(files, candidate) {
			return candidate
		}
	}
	for _, name := range sortedNames(files) {
		if strings.HasSuffix(name, ".py") && name != "__init__.py" {
			return name
		}
	}
	return "main.py"
}

func hasFile(files map[string]string, name string) bool {
	_, ok := files[name]
	return ok
}

func anyFileWithExt(files map[string]string, exts ...string) bool {
	for name := range files {
		for _, ext := range exts {
			if strings.HasSuffix(name, ext) {
				return true
			}
		}
	}
	return false
}

// sortedNames returns bundle paths in stable order so detection and
// entry resolution do not depend on map iteration.
func sortedNames(files map[string]string) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
