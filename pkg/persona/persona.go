package persona

import (
	"bytes"
	_ "embed"
	"os"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

//go:embed modes.yaml
var defaultCatalog []byte

//go:embed prompt/context.md
var contextPromptRaw string

var contextPromptTmpl = template.Must(template.New("context").Parse(contextPromptRaw))

var ErrUnknownMode = goerr.New("unknown chatbot mode")

type ModeID string

// Mode is one chatbot personality selectable on the chat page
type Mode struct {
	ID          ModeID `yaml:"id"`
	Label       string `yaml:"label"`
	Context     string `yaml:"context"`
	Instruction string `yaml:"instruction"`
}

// Prompt builds the text sent to the model for question. Modes without a
// context block pass the question through unchanged.
func (m *Mode) Prompt(question string) (string, error) {
	if strings.TrimSpace(m.Context) == "" {
		return question, nil
	}

	var buf bytes.Buffer
	err := contextPromptTmpl.Execute(&buf, struct {
		Context     string
		Instruction string
		Question    string
	}{
		Context:     strings.TrimSpace(m.Context),
		Instruction: strings.TrimSpace(m.Instruction),
		Question:    question,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to render prompt", goerr.V("mode", m.ID))
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Catalog is the ordered set of available modes. The first mode is the default.
type Catalog struct {
	modes []*Mode
	byID  map[ModeID]*Mode
}

type catalogFile struct {
	Modes []*Mode `yaml:"modes"`
}

// Default returns the built-in catalog
func Default() *Catalog {
	catalog, err := Parse(defaultCatalog)
	if err != nil {
		panic("built-in persona catalog is broken: " + err.Error())
	}
	return catalog
}

// Load reads a catalog from a YAML file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read persona file", goerr.V("path", path))
	}

	catalog, err := Parse(data)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid persona file", goerr.V("path", path))
	}
	return catalog, nil
}

// Parse decodes and validates a catalog
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse YAML")
	}

	if len(file.Modes) == 0 {
		return nil, goerr.New("at least one mode is required")
	}

	c := &Catalog{byID: make(map[ModeID]*Mode, len(file.Modes))}
	for i, mode := range file.Modes {
		if mode == nil || mode.ID == "" {
			return nil, goerr.New("mode id is empty", goerr.V("index", i))
		}
		if _, exists := c.byID[mode.ID]; exists {
			return nil, goerr.New("duplicated mode id", goerr.V("id", mode.ID))
		}
		if strings.TrimSpace(mode.Context) != "" && strings.TrimSpace(mode.Instruction) == "" {
			return nil, goerr.New("mode with context requires instruction", goerr.V("id", mode.ID))
		}
		if mode.Label == "" {
			mode.Label = string(mode.ID)
		}

		c.modes = append(c.modes, mode)
		c.byID[mode.ID] = mode
	}

	return c, nil
}

// Modes returns modes in declaration order
func (c *Catalog) Modes() []*Mode {
	return c.modes
}

func (c *Catalog) Default() *Mode {
	return c.modes[0]
}

// Get returns the mode by ID. An empty ID selects the default mode.
func (c *Catalog) Get(id ModeID) (*Mode, error) {
	if id == "" {
		return c.Default(), nil
	}
	mode, ok := c.byID[id]
	if !ok {
		return nil, goerr.Wrap(ErrUnknownMode, "no such mode", goerr.V("id", id))
	}
	return mode, nil
}
