package planner

import (
	"fmt"

	"tripplanner/pkg/templates"
	"tripplanner/pkg/trip"
)

// Agent names, used as log prefixes and metric labels.
const (
	WeatherAgentName = "weatherAgent"
	FlightsAgentName = "flightsAgent"
	HotelsAgentName  = "hotelsAgent"
)

// Fallback answers returned when an agent cannot produce one.
const (
	WeatherPlaceholder = "Unable to determine the weather right now."
	FlightPlaceholder  = "Unable to determine the flight right now."
	HotelsPlaceholder  = "Unable to determine the hotels right now."
)

// AgentSpec is everything one agent needs: its prompts and its fallback answer.
type AgentSpec struct {
	Name             string
	System           string
	User             string
	FinalInstruction string
	Placeholder      string
}

var prompts = templates.MustNewRenderer() //nolint:gochecknoglobals

// WeatherAgent builds the agent that forecasts the weather at the destination.
func WeatherAgent(req trip.Request) (AgentSpec, error) {
	return buildSpec(AgentSpec{Name: WeatherAgentName, Placeholder: WeatherPlaceholder}, req,
		templates.WeatherSystemTemplate, templates.WeatherUserTemplate, templates.WeatherFinalTemplate)
}

// FlightsAgent builds the agent that picks the best flight between origin and destination.
func FlightsAgent(req trip.Request) (AgentSpec, error) {
	return buildSpec(AgentSpec{Name: FlightsAgentName, Placeholder: FlightPlaceholder}, req,
		templates.FlightsSystemTemplate, templates.FlightsUserTemplate, templates.FlightsFinalTemplate)
}

// HotelsAgent builds the agent that picks the best hotel at the destination.
func HotelsAgent(req trip.Request) (AgentSpec, error) {
	return buildSpec(AgentSpec{Name: HotelsAgentName, Placeholder: HotelsPlaceholder}, req,
		templates.HotelsSystemTemplate, templates.HotelsUserTemplate, templates.HotelsFinalTemplate)
}

// buildSpec renders the three prompts. On error the returned spec still
// carries its name and placeholder.
func buildSpec(spec AgentSpec, req trip.Request, system, user, final templates.PromptTemplate) (AgentSpec, error) {
	data := &templates.TemplateData{
		From:       req.From,
		To:         req.To,
		Start:      req.Start,
		End:        req.End,
		Travellers: req.Travellers,
	}

	var err error
	if spec.System, err = prompts.Render(system, data); err != nil {
		return spec, fmt.Errorf("%s system prompt: %w", spec.Name, err)
	}
	if spec.User, err = prompts.Render(user, data); err != nil {
		return spec, fmt.Errorf("%s user prompt: %w", spec.Name, err)
	}
	if spec.FinalInstruction, err = prompts.Render(final, data); err != nil {
		return spec, fmt.Errorf("%s final instruction: %w", spec.Name, err)
	}
	return spec, nil
}
