package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want Language
		ok   bool
	}{
		{"python", LangPython, true},
		{"Python", LangPython, true},
		{"JavaScript", LangNode, true},
		{"node.js", LangNode, true},
		{"nodejs", LangNode, true},
		{"js", LangNode, true},
		{"TypeScript", LangTypeScript, true},
		{" ts ", LangTypeScript, true},
		{"ruby", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseLanguage(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestParseFramework(t *testing.T) {
	for _, alias := range []string{"next", "nextjs", "Next.js"} {
		fw, ok := ParseFramework(alias)
		require.True(t, ok, "alias %q", alias)
		assert.Equal(t, FrameworkNext, fw)
	}

	_, ok := ParseFramework("sinatra")
	assert.False(t, ok)
}

func TestFrameworkInternalPort(t *testing.T) {
	assert.Equal(t, 8000, FrameworkFastAPI.InternalPort())
	assert.Equal(t, 5000, FrameworkFlask.InternalPort())
	assert.Equal(t, 8501, FrameworkStreamlit.InternalPort())
	assert.Equal(t, 7860, FrameworkGradio.InternalPort())
	assert.Equal(t, 3000, FrameworkNext.InternalPort())
	assert.Equal(t, 8080, FrameworkVue.InternalPort())
	assert.Equal(t, 4200, FrameworkAngular.InternalPort())
}

func TestDetectLanguage_ExtensionCensus(t *testing.T) {
	lang, ok := DetectLanguage(Bundle{Files: map[string]string{"app.py": ""}}, nil, ModeExecute)
	require.True(t, ok)
	assert.Equal(t, LangPython, lang)

	lang, ok = DetectLanguage(Bundle{Files: map[string]string{"index.js": ""}}, nil, ModeExecute)
	require.True(t, ok)
	assert.Equal(t, LangNode, lang)

	// Python wins a mixed bundle.
	lang, ok = DetectLanguage(Bundle{Files: map[string]string{"app.py": "", "helper.js": ""}}, nil, ModeExecute)
	require.True(t, ok)
	assert.Equal(t, LangPython, lang)

	// TypeScript sources fall into the Node family without a plan hint.
	lang, ok = DetectLanguage(Bundle{Files: map[string]string{"index.ts": ""}}, nil, ModeExecute)
	require.True(t, ok)
	assert.Equal(t, LangNode, lang)

	_, ok = DetectLanguage(Bundle{Files: map[string]string{"main.rb": ""}}, nil, ModeExecute)
	assert.False(t, ok)
}

func TestDetectLanguage_PlanWins(t *testing.T) {
	bundle := Bundle{Files: map[string]string{"script.js": ""}}
	lang, ok := DetectLanguage(bundle, &Plan{Language: "Python"}, ModeExecute)
	require.True(t, ok)
	assert.Equal(t, LangPython, lang)

	// Unknown plan language falls back to the census.
	lang, ok = DetectLanguage(bundle, &Plan{Language: "ruby"}, ModeExecute)
	require.True(t, ok)
	assert.Equal(t, LangNode, lang)
}

func TestDetectLanguage_FrontendGate(t *testing.T) {
	bundle := Bundle{Files: map[string]string{
		"package.json": `{"dependencies": {"vue": "^3.0.0"}}`,
		"src/main.js":  "",
	}}

	_, ok := DetectLanguage(bundle, nil, ModeExecute)
	assert.False(t, ok)

	// Even a plan hint cannot push a front-end bundle into execution.
	_, ok = DetectLanguage(bundle, &Plan{Language: "JavaScript"}, ModeExecute)
	assert.False(t, ok)

	// Preview mode hosts front-end dev servers.
	lang, ok := DetectLanguage(bundle, nil, ModePreview)
	require.True(t, ok)
	assert.Equal(t, LangNode, lang)
}

func TestDetectLanguage_PreviewCensusIgnoresBareTypeScript(t *testing.T) {
	_, ok := DetectLanguage(Bundle{Files: map[string]string{"main.ts": ""}}, nil, ModePreview)
	assert.False(t, ok)
}

func TestDetectFramework_Requirements(t *testing.T) {
	bundle := Bundle{Files: map[string]string{
		"requirements.txt": "fastapi==0.110\nuvicorn\n",
		"main.py":          "",
	}}
	fw, ok := DetectFramework(bundle, nil)
	require.True(t, ok)
	assert.Equal(t, FrameworkFastAPI, fw)

	bundle.Files["requirements.txt"] = "Flask>=3\n"
	fw, ok = DetectFramework(bundle, nil)
	require.True(t, ok)
	assert.Equal(t, FrameworkFlask, fw)
}

func TestDetectFramework_PackageJSONOrder(t *testing.T) {
	// next depends on react; next must win.
	bundle := Bundle{Files: map[string]string{
		"package.json": `{"dependencies": {"react": "^18", "next": "14.0.0"}}`,
	}}
	fw, ok := DetectFramework(bundle, nil)
	require.True(t, ok)
	assert.Equal(t, FrameworkNext, fw)

	bundle = Bundle{Files: map[string]string{
		"package.json": `{"devDependencies": {"@vue/cli-service": "5.0.0"}}`,
	}}
	fw, ok = DetectFramework(bundle, nil)
	require.True(t, ok)
	assert.Equal(t, FrameworkVue, fw)

	bundle = Bundle{Files: map[string]string{
		"package.json": `{"dependencies": {"express": "^4.18"}}`,
	}}
	fw, ok = DetectFramework(bundle, nil)
	require.True(t, ok)
	assert.Equal(t, FrameworkExpress, fw)
}

func TestDetectFramework_SourceImports(t *testing.T) {
	bundle := Bundle{Files: map[string]string{
		"app.py": "import streamlit as st\nst.title('hi')\n",
	}}
	fw, ok := DetectFramework(bundle, nil)
	require.True(t, ok)
	assert.Equal(t, FrameworkStreamlit, fw)

	bundle = Bundle{Files: map[string]string{
		"demo.py": "from gradio import Interface\n",
	}}
	fw, ok = DetectFramework(bundle, nil)
	require.True(t, ok)
	assert.Equal(t, FrameworkGradio, fw)
}

func TestDetectFramework_PlanHint(t *testing.T) {
	bundle := Bundle{Files: map[string]string{"main.py": ""}}

	fw, ok := DetectFramework(bundle, &Plan{Framework: "FastAPI"})
	require.True(t, ok)
	assert.Equal(t, FrameworkFastAPI, fw)

	// An unknown plan framework falls through to the file heuristics.
	bundle.Files["requirements.txt"] = "flask\n"
	fw, ok = DetectFramework(bundle, &Plan{Framework: "sinatra"})
	require.True(t, ok)
	assert.Equal(t, FrameworkFlask, fw)

	_, ok = DetectFramework(Bundle{Files: map[string]string{"main.py": ""}}, &Plan{Framework: "sinatra"})
	assert.False(t, ok)
}

func TestPreviewable(t *testing.T) {
	assert.True(t, Previewable(Bundle{Files: map[string]string{
		"package.json": `{"dependencies": {"express": "*"}}`,
	}}, nil))

	assert.False(t, Previewable(Bundle{Files: map[string]string{
		"main.py": "print('not a web app')",
	}}, nil))
}

func TestEntryFile_Python(t *testing.T) {
	entry, ok := EntryFile(Bundle{Files: map[string]string{
		"helper.py": "", "app.py": "", "main.py": "",
	}}, LangPython)
	require.True(t, ok)
	assert.Equal(t, "main.py", entry)

	// Tests and __init__ never qualify.
	entry, ok = EntryFile(Bundle{Files: map[string]string{
		"__init__.py": "", "test_core.py": "", "worker.py": "",
	}}, LangPython)
	require.True(t, ok)
	assert.Equal(t, "worker.py", entry)

	_, ok = EntryFile(Bundle{Files: map[string]string{"test_only.py": ""}}, LangPython)
	assert.False(t, ok)
}

func TestEntryFile_Node(t *testing.T) {
	// The manifest's main field wins when the file is bundled.
	entry, ok := EntryFile(Bundle{Files: map[string]string{
		"package.json": `{"main": "cli.js"}`,
		"cli.js":       "",
		"index.js":     "",
	}}, LangNode)
	require.True(t, ok)
	assert.Equal(t, "cli.js", entry)

	// A main pointing outside the bundle is ignored.
	entry, ok = EntryFile(Bundle{Files: map[string]string{
		"package.json": `{"main": "dist/out.js"}`,
		"server.js":    "",
	}}, LangNode)
	require.True(t, ok)
	assert.Equal(t, "server.js", entry)

	entry, ok = EntryFile(Bundle{Files: map[string]string{
		"app.js": "", "main.js": "",
	}}, LangNode)
	require.True(t, ok)
	assert.Equal(t, "main.js", entry)
}

func TestLanguageImageAndLimits(t *testing.T) {
	assert.Equal(t, "python:3.11-slim", LangPython.Image())
	assert.Equal(t, "node:18-slim", LangNode.Image())
	assert.Equal(t, "node:18-slim", LangTypeScript.Image())

	assert.Equal(t, int64(512*1024*1024), LangPython.Limits().MemoryBytes)
	assert.Equal(t, int64(1024*1024*1024), LangNode.Limits().MemoryBytes)
	assert.Equal(t, int64(50000), LangPython.Limits().CPUQuota)
}

func TestFrameworkSlowInstall(t *testing.T) {
	assert.True(t, FrameworkReact.SlowInstall())
	assert.True(t, FrameworkNext.SlowInstall())
	assert.False(t, FrameworkExpress.SlowInstall())
	assert.False(t, FrameworkFastAPI.SlowInstall())
}
