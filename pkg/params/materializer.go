package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/schuecal/avdroll/pkg/naming"
	"github.com/schuecal/avdroll/pkg/types"
)

const (
	// tokenValidity is the registration token window granted to session
	// hosts joining the pool. A stale token must never be reused across
	// runs; every run computes a fresh expiration.
	tokenValidity = 20 * 24 * time.Hour

	// tokenExpirationLayout matches the fractional-second, Z-suffixed
	// ISO-8601 form the deployment template expects.
	tokenExpirationLayout = "2006-01-02T15:04:05.0000000Z07:00"

	// FolderPlaceholder is substituted with the image folder name when
	// rendering the image resource ID from its configured template.
	FolderPlaceholder = "{folder}"
)

// Parameter names overwritten in the template parameter document. Every
// other parameter passes through verbatim.
const (
	paramHostPoolName         = "hostpoolName"
	paramHostPoolFriendlyName = "hostpoolFriendlyName"
	paramTokenExpiration      = "tokenExpirationTime"
	paramVMImageSourceID      = "vmCustomImageSourceId"
	paramVMNamePrefix         = "vmNamePrefix"
	paramWorkspaceName        = "workspaceName"
)

// Settings are the static naming inputs for one environment.
type Settings struct {
	// Env is the short environment tag, e.g. "we".
	Env string
	// DesktopNameBase is the prefix of the published desktop's friendly
	// name, e.g. "Schuecal".
	DesktopNameBase string
	// ImageResourceIDTemplate is the image resource ID with a {folder}
	// placeholder for the build folder name.
	ImageResourceIDTemplate string
}

// Build derives the complete deployment parameter set from a detected image
// version. It is pure given the clock: identical inputs yield an identical
// spec apart from the token expiration, which is always now + 20 days.
func Build(image *types.ImageVersion, settings Settings, now time.Time) (*types.DeploymentSpec, error) {
	segment, err := naming.ParseBuildFolder(image.FolderName)
	if err != nil {
		return nil, err
	}

	pool := naming.HostPoolName(settings.Env, image.FolderName)
	return &types.DeploymentSpec{
		HostPoolName:         pool,
		HostPoolFriendlyName: pool,
		TokenExpiration:      now.UTC().Add(tokenValidity),
		VMImageResourceID:    strings.ReplaceAll(settings.ImageResourceIDTemplate, FolderPlaceholder, image.FolderName),
		VMNamePrefix:         naming.VMNamePrefix(settings.Env, segment),
		WorkspaceName:        naming.WorkspaceName(settings.Env),
		DesktopFriendlyName:  naming.DesktopFriendlyName(settings.DesktopNameBase, segment),
	}, nil
}

// FormatTokenExpiration renders a token expiration timestamp in the form
// the deployment template expects.
func FormatTokenExpiration(t time.Time) string {
	return t.UTC().Format(tokenExpirationLayout)
}

type paramValue struct {
	Value any `json:"value"`
}

// jsonMember is one key/value pair of a JSON object, held in document order.
type jsonMember struct {
	key string
	raw json.RawMessage
}

// parseObject decodes a JSON object into its members without losing their
// order. A plain map round-trip would rewrite the document in sorted key
// order, which breaks the verbatim passthrough contract.
func parseObject(doc []byte) ([]jsonMember, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected a JSON object, got %v", tok)
	}

	var members []jsonMember
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected an object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		members = append(members, jsonMember{key: key, raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return members, nil
}

func encodeObject(members []jsonMember) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, member := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(member.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(member.raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Render merges a deployment spec into a template parameter document.
// Exactly six parameter values are overwritten; every other key in the
// document, known or not, passes through verbatim in its original position.
// Overwritten parameters keep their place; ones absent from the document
// are appended after the existing parameters.
func Render(spec *types.DeploymentSpec, doc []byte) ([]byte, error) {
	top, err := parseObject(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse parameter document: %w", err)
	}

	var parameters []jsonMember
	parametersAt := -1
	for i, member := range top {
		if member.key == "parameters" {
			parametersAt = i
			parameters, err = parseObject(member.raw)
			if err != nil {
				return nil, fmt.Errorf("failed to parse parameters block: %w", err)
			}
			break
		}
	}

	overrides := []struct {
		name  string
		value any
	}{
		{paramHostPoolName, spec.HostPoolName},
		{paramHostPoolFriendlyName, spec.HostPoolFriendlyName},
		{paramTokenExpiration, FormatTokenExpiration(spec.TokenExpiration)},
		{paramVMImageSourceID, spec.VMImageResourceID},
		{paramVMNamePrefix, spec.VMNamePrefix},
		{paramWorkspaceName, spec.WorkspaceName},
	}
	for _, override := range overrides {
		encoded, err := json.Marshal(paramValue{Value: override.value})
		if err != nil {
			return nil, fmt.Errorf("failed to encode parameter %s: %w", override.name, err)
		}
		replaced := false
		for i := range parameters {
			if parameters[i].key == override.name {
				parameters[i].raw = encoded
				replaced = true
				break
			}
		}
		if !replaced {
			parameters = append(parameters, jsonMember{key: override.name, raw: encoded})
		}
	}

	block, err := encodeObject(parameters)
	if err != nil {
		return nil, fmt.Errorf("failed to encode parameters block: %w", err)
	}
	if parametersAt >= 0 {
		top[parametersAt].raw = block
	} else {
		top = append(top, jsonMember{key: "parameters", raw: block})
	}

	return encodeObject(top)
}

// ExtractParameters returns the parameters block of a rendered document in
// the form the deployment API expects: the bare name → {value} mapping,
// without the surrounding $schema envelope.
func ExtractParameters(doc []byte) (map[string]any, error) {
	var top struct {
		Parameters map[string]any `json:"parameters"`
	}
	if err := json.Unmarshal(doc, &top); err != nil {
		return nil, fmt.Errorf("failed to parse parameter document: %w", err)
	}
	if top.Parameters == nil {
		return nil, fmt.Errorf("parameter document has no parameters block")
	}
	return top.Parameters, nil
}

// RenderFile renders the parameter document read from templatePath. When
// stagingPath is non-empty the rendered document is also written there for
// operator inspection; the pipeline itself consumes the returned bytes and
// never reads the staging copy back.
func RenderFile(spec *types.DeploymentSpec, templatePath, stagingPath string) ([]byte, error) {
	doc, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter template %s: %w", templatePath, err)
	}

	rendered, err := Render(spec, doc)
	if err != nil {
		return nil, err
	}

	if stagingPath != "" {
		if err := os.WriteFile(stagingPath, rendered, 0o644); err != nil {
			return nil, fmt.Errorf("failed to stage rendered parameters to %s: %w", stagingPath, err)
		}
	}
	return rendered, nil
}
