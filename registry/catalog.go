package registry

import "github.com/BaSui01/flowgraph/types"

func f64(v float64) *float64 { return &v }

// Catalog returns the static module-type catalog. It is the single source
// of truth for what users can place on the canvas; the registry loads it
// at process start and never mutates it afterwards.
func Catalog() []types.ModuleType {
	return []types.ModuleType{
		{
			ID:          "text-input",
			Name:        "Text Input",
			Category:    types.CategoryInput,
			Description: "Text input component",
			ConfigSchema: types.ConfigSchema{
				"label":   {Type: types.FieldString, Default: "Text Input"},
				"default": {Type: types.FieldString},
			},
			InputSchema:  types.PortSchema{},
			OutputSchema: types.PortSchema{"text": {Type: "string"}},
		},
		{
			ID:          "file-input",
			Name:        "File Input",
			Category:    types.CategoryInput,
			Description: "File upload component",
			ConfigSchema: types.ConfigSchema{
				"label":  {Type: types.FieldString, Default: "File Input"},
				"accept": {Type: types.FieldString, Default: "*/*"},
			},
			InputSchema:  types.PortSchema{},
			OutputSchema: types.PortSchema{"file": {Type: "object"}},
		},
		{
			ID:          "openai-text",
			Name:        "OpenAI Text Model",
			Category:    types.CategoryAIModel,
			Description: "OpenAI text generation model (GPT-4, etc.)",
			ConfigSchema: types.ConfigSchema{
				"provider":    {Type: types.FieldString, Default: "openai"},
				"model":       {Type: types.FieldString, Default: "gpt-4-turbo"},
				"temperature": {Type: types.FieldNumber, Default: 0.7, Min: f64(0), Max: f64(2)},
				"max_tokens":  {Type: types.FieldNumber, Default: 1000},
				"prompt":      {Type: types.FieldString, Default: "{{prompt}}"},
			},
			InputSchema:  types.PortSchema{"prompt": {Type: "string"}},
			OutputSchema: types.PortSchema{"text": {Type: "string"}},
		},
		{
			ID:          "anthropic-claude",
			Name:        "Anthropic Claude",
			Category:    types.CategoryAIModel,
			Description: "Anthropic Claude model",
			ConfigSchema: types.ConfigSchema{
				"provider":    {Type: types.FieldString, Default: "anthropic"},
				"model":       {Type: types.FieldString, Default: "claude-3-opus-20240229"},
				"temperature": {Type: types.FieldNumber, Default: 0.7, Min: f64(0), Max: f64(1)},
				"max_tokens":  {Type: types.FieldNumber, Default: 1000},
				"prompt":      {Type: types.FieldString, Default: "{{prompt}}"},
			},
			InputSchema:  types.PortSchema{"prompt": {Type: "string"}},
			OutputSchema: types.PortSchema{"text": {Type: "string"}},
		},
		{
			ID:          "openai-image",
			Name:        "OpenAI DALL-E",
			Category:    types.CategoryAIModel,
			Description: "OpenAI DALL-E image generation",
			ConfigSchema: types.ConfigSchema{
				"provider": {Type: types.FieldString, Default: "openai"},
				"model":    {Type: types.FieldString, Default: "dall-e-3"},
				"size": {Type: types.FieldString, Default: "1024x1024",
					Enum: []string{"1024x1024", "1792x1024", "1024x1792"}},
				"prompt": {Type: types.FieldString, Default: "{{prompt}}"},
			},
			InputSchema:  types.PortSchema{"prompt": {Type: "string"}},
			OutputSchema: types.PortSchema{"image_url": {Type: "string"}},
		},
		{
			ID:          "text-output",
			Name:        "Text Output",
			Category:    types.CategoryOutput,
			Description: "Display text output",
			ConfigSchema: types.ConfigSchema{
				"label": {Type: types.FieldString, Default: "Output"},
			},
			InputSchema:  types.PortSchema{"text": {Type: "string"}},
			OutputSchema: types.PortSchema{},
		},
		{
			ID:          "image-output",
			Name:        "Image Output",
			Category:    types.CategoryOutput,
			Description: "Display image output",
			ConfigSchema: types.ConfigSchema{
				"label": {Type: types.FieldString, Default: "Image"},
			},
			InputSchema:  types.PortSchema{"image_url": {Type: "string"}},
			OutputSchema: types.PortSchema{},
		},
		{
			ID:          "conditional",
			Name:        "Conditional Logic",
			Category:    types.CategoryLogic,
			Description: "Branch based on conditions",
			ConfigSchema: types.ConfigSchema{
				"condition": {Type: types.FieldString, Default: `value contains "yes"`},
			},
			InputSchema: types.PortSchema{"value": {Type: "string"}},
			OutputSchema: types.PortSchema{
				"true":  {Type: "any"},
				"false": {Type: "any"},
			},
		},
		{
			ID:          "transform",
			Name:        "Transform",
			Category:    types.CategoryLogic,
			Description: "Transform data with an expression",
			ConfigSchema: types.ConfigSchema{
				"expression": {Type: types.FieldString, Default: "upper(string(value))"},
			},
			InputSchema:  types.PortSchema{"value": {Type: "any"}},
			OutputSchema: types.PortSchema{"output": {Type: "any"}},
		},
	}
}
