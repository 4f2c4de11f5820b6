// internal/engine/overrides.go
package engine

import (
	"fmt"

	"advisor-engine/pkg/registry"
)

var classNames = map[string]Class{
	"transition": ClassTransition,
	"flow":       ClassFlow,
	"greeting":   ClassGreeting,
	"general":    ClassGeneral,
}

// OptionsFromRegistry turns a catalog override file into engine options.
// Message overrides are applied on top of the default templates.
func OptionsFromRegistry(reg *registry.CatalogRegistry) ([]Option, error) {
	if reg == nil {
		return nil, nil
	}

	var opts []Option
	for name, sc := range reg.Screens {
		screen, err := ParseScreen(name)
		if err != nil || name == "" {
			return nil, fmt.Errorf("catalog override: unknown screen %q", name)
		}

		rules := make([]Rule, 0, len(sc.Rules))
		seen := make(map[IntentID]bool, len(sc.Rules))
		for _, r := range sc.Rules {
			class, ok := classNames[r.Class]
			if !ok {
				return nil, fmt.Errorf("catalog override: screen %s: unknown class %q", name, r.Class)
			}
			id := IntentID(r.Intent)
			if id == IntentUnknown {
				return nil, fmt.Errorf("catalog override: screen %s: %q cannot have keywords", name, r.Intent)
			}
			if seen[id] {
				return nil, fmt.Errorf("catalog override: screen %s: duplicate intent %q", name, r.Intent)
			}
			seen[id] = true
			rules = append(rules, Rule{Intent: id, Class: class, Keywords: r.Keywords})
		}

		flow := make([]IntentID, 0, len(sc.Flow))
		for _, f := range sc.Flow {
			if !seen[IntentID(f)] {
				return nil, fmt.Errorf("catalog override: screen %s: flow step %q has no rule", name, f)
			}
			flow = append(flow, IntentID(f))
		}

		cues := sc.ContinuationCues
		if cues == nil {
			cues = defaultCues
		}
		opts = append(opts, WithCatalog(NewCatalog(screen, rules, flow, cues)))
	}

	if len(reg.Messages) > 0 {
		tpl := DefaultTemplates()
		for k, v := range reg.Messages {
			tpl.SetMessage(k, v)
		}
		opts = append(opts, WithTemplates(tpl))
	}
	return opts, nil
}
