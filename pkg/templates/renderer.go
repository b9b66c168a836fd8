// Package templates renders the prompts given to the trip planning agents.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

//go:embed agents/*.tpl.md
var templateFS embed.FS

// TemplateData holds the trip fields a prompt may reference.
type TemplateData struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Travellers int    `json:"travellers"`
}

// PromptTemplate names an embedded prompt.
type PromptTemplate string

const (
	// WeatherSystemTemplate plans the geocode then forecast sequence.
	WeatherSystemTemplate PromptTemplate = "agents/weather_system.tpl.md"
	// WeatherUserTemplate asks for the destination weather over the trip dates.
	WeatherUserTemplate PromptTemplate = "agents/weather_user.tpl.md"
	// WeatherFinalTemplate asks for the one-sentence forecast.
	WeatherFinalTemplate PromptTemplate = "agents/weather_final.tpl.md"

	// FlightsSystemTemplate plans geocode, airport lookup and flight search.
	FlightsSystemTemplate PromptTemplate = "agents/flights_system.tpl.md"
	// FlightsUserTemplate asks for outbound and return flights.
	FlightsUserTemplate PromptTemplate = "agents/flights_user.tpl.md"
	// FlightsFinalTemplate asks for the single best flight.
	FlightsFinalTemplate PromptTemplate = "agents/flights_final.tpl.md"

	// HotelsSystemTemplate plans the hotel search.
	HotelsSystemTemplate PromptTemplate = "agents/hotels_system.tpl.md"
	// HotelsUserTemplate asks for the best hotel for the party.
	HotelsUserTemplate PromptTemplate = "agents/hotels_user.tpl.md"
	// HotelsFinalTemplate asks for the single best hotel.
	HotelsFinalTemplate PromptTemplate = "agents/hotels_final.tpl.md"
)

var allTemplates = []PromptTemplate{
	WeatherSystemTemplate, WeatherUserTemplate, WeatherFinalTemplate,
	FlightsSystemTemplate, FlightsUserTemplate, FlightsFinalTemplate,
	HotelsSystemTemplate, HotelsUserTemplate, HotelsFinalTemplate,
}

// Renderer handles template rendering for agent prompts.
type Renderer struct {
	templates map[PromptTemplate]*template.Template
}

// NewRenderer parses every embedded prompt.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		templates: make(map[PromptTemplate]*template.Template, len(allTemplates)),
	}

	for _, name := range allTemplates {
		content, err := templateFS.ReadFile(string(name))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}

		// Missing keys are a bug in the caller, not something to paper over with "<no value>".
		tmpl, err := template.New(string(name)).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		r.templates[name] = tmpl
	}

	return r, nil
}

// MustNewRenderer is NewRenderer for package initialisation.
func MustNewRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// Render renders the specified template with the given data.
// The trailing newline of the template file is not part of the prompt.
func (r *Renderer) Render(templateName PromptTemplate, data *TemplateData) (string, error) {
	tmpl, exists := r.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", templateName, err)
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// GetAvailableTemplates returns a sorted list of all available templates.
func (r *Renderer) GetAvailableTemplates() []PromptTemplate {
	names := make([]PromptTemplate, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
