package setup

// App is one installable piece of AI development tooling. CheckCommand must
// exit zero when the app is already present; InstallCommands run in order,
// each in its own SSH session, and the first failure aborts the install.
type App struct {
	ID          string
	Name        string
	Description string

	CheckCommand    string
	InstallCommands []string
}

// catalog is the curated list of tooling offered for ZGX devices. The list
// is flat: dependency ordering between apps is the operator's concern.
var catalog = []App{
	{
		ID:           "uv",
		Name:         "uv (Python toolchain)",
		Description:  "Python package and environment manager",
		CheckCommand: "command -v uv",
		InstallCommands: []string{
			"curl -LsSf https://astral.sh/uv/install.sh | sh",
		},
	},
	{
		ID:           "ollama",
		Name:         "Ollama",
		Description:  "Local LLM runtime and model manager",
		CheckCommand: "command -v ollama",
		InstallCommands: []string{
			"curl -fsSL https://ollama.com/install.sh | sh",
		},
	},
	{
		ID:           "jupyterlab",
		Name:         "JupyterLab",
		Description:  "Notebook environment for interactive development",
		CheckCommand: "command -v jupyter-lab",
		InstallCommands: []string{
			"uv tool install jupyterlab",
		},
	},
	{
		ID:           "docker",
		Name:         "Docker Engine",
		Description:  "Container runtime for packaged workloads",
		CheckCommand: "command -v docker",
		InstallCommands: []string{
			"curl -fsSL https://get.docker.com | sh",
			"sudo usermod -aG docker $USER",
		},
	},
}

// Catalog returns the installable apps in display order.
func Catalog() []App {
	out := make([]App, len(catalog))
	copy(out, catalog)
	return out
}

// FindApp looks an app up by its ID.
func FindApp(id string) (App, bool) {
	for _, app := range catalog {
		if app.ID == id {
			return app, true
		}
	}
	return App{}, false
}
