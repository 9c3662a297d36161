package schema

// RepairStrategyOutput fixes the shape defects the analysis model commonly
// produces, without touching content:
//
//   - a missing or non-array marketing_routes becomes []
//   - a missing or non-array image_prompts on a route becomes []
//   - a missing or blank summary on a prompt becomes ""
//
// The input is never modified. Values that are not JSON objects are returned
// unchanged.
func RepairStrategyOutput(raw any) any {
	root, ok := raw.(map[string]any)
	if !ok {
		return raw
	}
	out := copyMap(root)

	routes, ok := out["marketing_routes"].([]any)
	if !ok {
		out["marketing_routes"] = []any{}
		return out
	}

	fixed := make([]any, len(routes))
	for i, r := range routes {
		route, ok := r.(map[string]any)
		if !ok {
			fixed[i] = r
			continue
		}
		route = copyMap(route)
		prompts, ok := route["image_prompts"].([]any)
		if !ok {
			route["image_prompts"] = []any{}
		} else {
			fp := make([]any, len(prompts))
			for j, p := range prompts {
				fp[j] = repairPrompt(p)
			}
			route["image_prompts"] = fp
		}
		fixed[i] = route
	}
	out["marketing_routes"] = fixed
	return out
}

func repairPrompt(p any) any {
	prompt, ok := p.(map[string]any)
	if !ok {
		return p
	}
	prompt = copyMap(prompt)
	if s, present := prompt["summary"]; !present || blank(s) {
		prompt["summary"] = ""
	}
	return prompt
}

// blank reports whether v is an empty placeholder (null, false, 0 or "").
func blank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case float64:
		return x == 0
	case string:
		return x == ""
	}
	return false
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
