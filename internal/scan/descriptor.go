package scan

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/modgrid/internal/unit"
)

// descriptorFile is the gohcl schema for one descriptor file. A file may
// declare several units.
type descriptorFile struct {
	Units []unitBlock `hcl:"unit,block"`
}

type unitBlock struct {
	Name         string       `hcl:"name,label"`
	Path         string       `hcl:"path,optional"`
	Dependencies []string     `hcl:"dependencies,optional"`
	Priority     int          `hcl:"priority,optional"`
	Enabled      *bool        `hcl:"enabled,optional"`
	Async        bool         `hcl:"async,optional"`
	Timeout      string       `hcl:"timeout,optional"`
	Config       *configBlock `hcl:"config,block"`
}

type configBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// parseDescriptor reads one descriptor file and returns the specs it
// declares.
func parseDescriptor(parser *hclparse.Parser, path string) ([]*unit.Spec, error) {
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse descriptor %s: %w", path, diags)
	}

	var file descriptorFile
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &file); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode descriptor %s: %w", path, diags)
	}

	specs := make([]*unit.Spec, 0, len(file.Units))
	for _, block := range file.Units {
		spec, err := block.toSpec(path)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// toSpec converts a decoded unit block into an immutable spec.
func (b unitBlock) toSpec(source string) (*unit.Spec, error) {
	if b.Name == "" {
		return nil, fmt.Errorf("descriptor %s declares a unit without a name", source)
	}

	spec := &unit.Spec{
		Name:         b.Name,
		Path:         b.Path,
		Dependencies: b.Dependencies,
		Priority:     b.Priority,
		Enabled:      true,
		Async:        b.Async,
		Source:       source,
	}
	if b.Enabled != nil {
		spec.Enabled = *b.Enabled
	}

	if b.Timeout != "" {
		d, err := time.ParseDuration(b.Timeout)
		if err != nil {
			return nil, fmt.Errorf("unit '%s': invalid timeout %q: %w", b.Name, b.Timeout, err)
		}
		spec.Timeout = d
	}

	if b.Config != nil {
		cfg, err := decodeConfigBody(b.Config.Body)
		if err != nil {
			return nil, fmt.Errorf("unit '%s': %w", b.Name, err)
		}
		spec.Config = cfg
	}

	return spec, nil
}

// decodeConfigBody flattens the opaque config block into plain Go values.
// Only literal values are accepted; there is no evaluation context.
func decodeConfigBody(body hcl.Body) (map[string]any, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid config block: %w", diags)
	}

	cfg := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid config attribute '%s': %w", name, diags)
		}
		converted, err := ctyValueToInterface(val)
		if err != nil {
			return nil, fmt.Errorf("config attribute '%s': %w", name, err)
		}
		cfg[name] = converted
	}
	return cfg, nil
}

// ctyValueToInterface converts a cty.Value to a Go interface{}.
func ctyValueToInterface(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	if val.Type().IsPrimitiveType() {
		switch val.Type() {
		case cty.String:
			return val.AsString(), nil
		case cty.Number:
			f, _ := val.AsBigFloat().Float64()
			return f, nil
		case cty.Bool:
			return val.True(), nil
		default:
			return nil, fmt.Errorf("unsupported primitive type: %s", val.Type().FriendlyName())
		}
	}
	if val.Type().IsObjectType() || val.Type().IsMapType() {
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			valInterface, err := ctyValueToInterface(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = valInterface
		}
		return out, nil
	}
	if val.Type().IsTupleType() || val.Type().IsListType() {
		var out []any
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			valInterface, err := ctyValueToInterface(v)
			if err != nil {
				return nil, err
			}
			out = append(out, valInterface)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty.Type for conversion: %s", val.Type().FriendlyName())
}
