package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Prompts holds the fixed texts used by the conversation.
type Prompts struct {
	// Persona is the style directive sent with every reply generation.
	Persona string `yaml:"persona"`
	// Extraction is the directive for the structured field extraction call.
	Extraction string `yaml:"extraction"`
	// Fallback is returned when reply generation fails or is empty.
	Fallback string `yaml:"fallback"`
	// Closing is returned when all fields have been captured.
	Closing string `yaml:"closing"`
	// Terminal is returned for turns on a finished conversation.
	Terminal string `yaml:"terminal"`
}

// DefaultPrompts returns the built-in prompts.
func DefaultPrompts() Prompts {
	return Prompts{
		Persona: "Eres la recepcionista virtual de una clínica. Responde en español, con frases breves y cálidas. " +
			"Tu objetivo es conocer el nombre del paciente, el motivo de la consulta, su ciudad y el horario preferido. " +
			"Pide un solo dato a la vez, no des diagnósticos y no inventes información.",
		Extraction: "Extrae datos del mensaje del paciente. Responde solo con un objeto JSON con las claves " +
			"name, reason, city, preferred_time, priority, label, suggested_action. " +
			"Usa null para cualquier dato que el mensaje no diga explícitamente; nunca inventes valores. " +
			"priority es uno de Alta, Media, Baja. label es uno de Consulta, Potencial cita. " +
			"suggested_action es uno de Automatico, Derivar a equipo.",
		Fallback: "¿Podrías contarme un poco más?",
		Closing:  "¡Gracias! Ya tenemos tus datos. Un miembro del equipo te contactará pronto.",
		Terminal: "Esta conversación ya finalizó. Si necesitas algo más, abre un nuevo chat.",
	}
}

// LoadPrompts reads prompts from a YAML file. Keys missing from the file keep
// their default values.
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()

	data, err := os.ReadFile(path)
	if err != nil {
		return prompts, fmt.Errorf("failed to read prompts file: %w", err)
	}
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return DefaultPrompts(), fmt.Errorf("failed to parse prompts file: %w", err)
	}
	return prompts, nil
}
