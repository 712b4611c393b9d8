package sandbox

// ABOUTME: Builds the shell commands containers run for dependency install,
// ABOUTME: one-shot execution, and preview server startup.

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// InstallCommand builds the dependency install command for one-shot
// execution, or "" when nothing needs installing.
func InstallCommand(b Bundle, lang Language) string {
	if lang == LangPython {
		if hasFile(b.Files, "requirements.txt") {
			return "pip install -q -r requirements.txt"
		}
		if pkgs := detectPythonPackages(b.Files); len(pkgs) > 0 {
			return "pip install -q " + strings.Join(pkgs, " ")
		}
		return ""
	}

	if hasFile(b.Files, "package.json") {
		return "npm install --silent"
	}
	return ""
}

// RunCommand builds the one-shot execution command for the entry file.
func RunCommand(entry string, lang Language) string {
	switch lang {
	case LangPython:
		return "python " + entry
	case LangTypeScript:
		return "npx ts-node " + entry
	default:
		return "node " + entry
	}
}

// PreviewInstallCommand builds the install step for a preview container,
// or "" when nothing needs installing. Frameworks without a requirements
// file get a minimal package seed so the server can boot at all.
func PreviewInstallCommand(b Bundle, lang Language, fw Framework) string {
	if lang == LangPython {
		if req, ok := b.Files["requirements.txt"]; ok {
			cmd := "pip install -q -r requirements.txt"
			// uvicorn is the server, fastapi just the framework; bundles
			// routinely forget to list it.
			if fw == FrameworkFastAPI && !strings.Contains(strings.ToLower(req), "uvicorn") {
				cmd += " uvicorn"
			}
			return cmd
		}
		switch fw {
		case FrameworkFastAPI:
			return "pip install -q fastapi uvicorn"
		case FrameworkFlask:
			return "pip install -q flask"
		case FrameworkStreamlit:
			return "pip install -q streamlit"
		case FrameworkGradio:
			return "pip install -q gradio"
		}
		return ""
	}

	if hasFile(b.Files, "package.json") {
		return "npm install --silent"
	}
	return ""
}

// PreviewRunCommand builds the server start command for a preview
// container. Servers must bind 0.0.0.0 or the published port maps to
// nothing.
func PreviewRunCommand(b Bundle, lang Language, fw Framework) string {
	files := b.Files

	if lang == LangPython {
		main := previewMain(files)
		switch fw {
		case FrameworkFastAPI:
			module := strings.ReplaceAll(strings.TrimSuffix(main, ".py"), "/", ".")
			return fmt.Sprintf("uvicorn %s:app --host 0.0.0.0 --port 8000", module)
		case FrameworkFlask:
			return fmt.Sprintf("flask --app %s run --host 0.0.0.0 --port 5000", strings.TrimSuffix(main, ".py"))
		case FrameworkDjango:
			return "python manage.py runserver 0.0.0.0:8000"
		case FrameworkStreamlit:
			return fmt.Sprintf("streamlit run %s --server.address 0.0.0.0 --server.port 8501 --server.headless true", main)
		default:
			// Gradio reads server_name from code or env; plain python works.
			return "python " + main
		}
	}

	scripts := packageScripts(files)

	switch fw {
	case FrameworkReact, FrameworkNext:
		if _, ok := scripts["dev"]; ok {
			return "npm run dev -- --host 0.0.0.0"
		}
		if _, ok := scripts["start"]; ok {
			return "npm start"
		}
		return "npm start"
	case FrameworkVue, FrameworkAngular, FrameworkNuxt:
		if _, ok := scripts["dev"]; ok {
			return "npm run dev -- --host 0.0.0.0"
		}
		if _, ok := scripts["serve"]; ok {
			return "npm run serve -- --host 0.0.0.0"
		}
		if _, ok := scripts["start"]; ok {
			return "npm start"
		}
		return "npm run dev -- --host 0.0.0.0"
	default:
		// Express, Koa, Hapi and anything generic: prefer the manifest's
		// own scripts, fall back to conventional entry files.
		if _, ok := scripts["start"]; ok {
			return "npm start"
		}
		if _, ok := scripts["dev"]; ok {
			return "npm run dev"
		}
		for _, candidate := range []string{"index.js", "server.js", "app.js"} {
			if hasFile(files, candidate) {
				return "node " + candidate
			}
		}
		return "npm start"
	}
}

// PreviewEnv builds the environment for a preview container. Dev servers
// inside containers need polling file watchers and must not try to open
// a browser.
func PreviewEnv(fw Framework, internalPort int) map[string]string {
	env := map[string]string{
		"HOST": "0.0.0.0",
		"PORT": fmt.Sprintf("%d", internalPort),
	}

	switch fw {
	case FrameworkReact, FrameworkNext:
		env["BROWSER"] = "none"
		env["CI"] = "true"
		env["CHOKIDAR_USEPOLLING"] = "true"
		env["WATCHPACK_POLLING"] = "true"
	case FrameworkVue, FrameworkAngular, FrameworkNuxt:
		env["BROWSER"] = "none"
		env["CI"] = "true"
		env["CHOKIDAR_USEPOLLING"] = "true"
	}

	return env
}

// packageScripts returns the scripts table from package.json, or nil.
func packageScripts(files map[string]string) map[string]string {
	raw, ok := files["package.json"]
	if !ok {
		return nil
	}
	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal([]byte(raw), &pkg); err != nil {
		return nil
	}
	return pkg.Scripts
}

var importPattern = regexp.MustCompile(`(?m)^(?:from|import)\s+([a-zA-Z_][a-zA-Z0-9_]*)`)

// thirdPartyPackages is the allow-list of import names worth auto
// installing when a bundle ships no requirements file. Stdlib modules
// are deliberately absent.
var thirdPartyPackages = map[string]bool{
	"flask": true, "django": true, "fastapi": true, "bottle": true, "tornado": true, "starlette": true,
	"requests": true, "httpx": true, "aiohttp": true, "urllib3": true,
	"pandas": true, "numpy": true, "scipy": true, "matplotlib": true, "seaborn": true, "plotly": true,
	"sqlalchemy": true, "pymongo": true, "redis": true, "psycopg2": true, "mysql": true,
	"click": true, "typer": true, "pydantic": true, "attrs": true, "dataclasses": true,
	"pytest": true, "beautifulsoup4": true, "bs4": true, "lxml": true, "pillow": true,
	"pyyaml": true, "toml": true, "python-dotenv": true, "cryptography": true,
	"asyncio": true, "uvicorn": true, "gunicorn": true,
}

// importToPip maps import names to the pip package that provides them.
var importToPip = map[string]string{
	"bs4":     "beautifulsoup4",
	"cv2":     "opencv-python",
	"PIL":     "pillow",
	"yaml":    "pyyaml",
	"dotenv":  "python-dotenv",
	"sklearn": "scikit-learn",
}

// detectPythonPackages scans .py sources for installable third-party
// imports and returns pip package names, sorted for a stable command.
func detectPythonPackages(files map[string]string) []string {
	seen := make(map[string]bool)

	for name, content := range files {
		if !strings.HasSuffix(name, ".py") {
			continue
		}
		for _, match := range importPattern.FindAllStringSubmatch(content, -1) {
			top := strings.ToLower(strings.SplitN(match[1], ".", 2)[0])
			if !thirdPartyPackages[top] {
				continue
			}
			pip := top
			if mapped, ok := importToPip[top]; ok {
				pip = mapped
			}
			seen[pip] = true
		}
	}

	if len(seen) == 0 {
		return nil
	}
	pkgs := make([]string, 0, len(seen))
	for pkg := range seen {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)
	return pkgs
}
