package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/schuecal/avdroll/pkg/config"
)

// RolloutManifest is a declarative per-environment settings document
// applied over the loaded configuration.
type RolloutManifest struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   ManifestMetadata `yaml:"metadata"`
	Spec       ManifestSpec     `yaml:"spec"`
}

type ManifestMetadata struct {
	Name   string            `yaml:"name"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

type ManifestSpec struct {
	Env                     string `yaml:"env,omitempty"`
	DesktopNameBase         string `yaml:"desktopNameBase,omitempty"`
	ImageResourceIDTemplate string `yaml:"imageResourceIdTemplate,omitempty"`
	AppGroupSuffix          string `yaml:"appGroupSuffix,omitempty"`
	ResourceGroup           string `yaml:"resourceGroup,omitempty"`
	ImagesPath              string `yaml:"imagesPath,omitempty"`
	TemplatePath            string `yaml:"templatePath,omitempty"`
	ParametersPath          string `yaml:"parametersPath,omitempty"`
	PropagationDelay        string `yaml:"propagationDelay,omitempty"`
	Warmup                  string `yaml:"warmup,omitempty"`
}

// applyManifest overlays non-empty manifest fields onto cfg.
func applyManifest(cfg *config.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest RolloutManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("failed to parse manifest: %w", err)
	}
	if manifest.Kind != "Rollout" {
		return fmt.Errorf("unsupported manifest kind: %s", manifest.Kind)
	}

	spec := manifest.Spec
	if spec.Env != "" {
		cfg.Naming.Env = spec.Env
	}
	if spec.DesktopNameBase != "" {
		cfg.Naming.DesktopNameBase = spec.DesktopNameBase
	}
	if spec.ImageResourceIDTemplate != "" {
		cfg.Naming.ImageResourceIDTemplate = spec.ImageResourceIDTemplate
	}
	if spec.AppGroupSuffix != "" {
		cfg.Naming.AppGroupSuffix = spec.AppGroupSuffix
	}
	if spec.ResourceGroup != "" {
		cfg.Azure.ResourceGroup = spec.ResourceGroup
	}
	if spec.ImagesPath != "" {
		cfg.Repository.ImagesPath = spec.ImagesPath
	}
	if spec.TemplatePath != "" {
		cfg.Repository.TemplatePath = spec.TemplatePath
	}
	if spec.ParametersPath != "" {
		cfg.Repository.ParametersPath = spec.ParametersPath
	}
	if spec.PropagationDelay != "" {
		d, err := time.ParseDuration(spec.PropagationDelay)
		if err != nil {
			return fmt.Errorf("invalid propagationDelay: %w", err)
		}
		cfg.Rollout.PropagationDelay = d
	}
	if spec.Warmup != "" {
		d, err := time.ParseDuration(spec.Warmup)
		if err != nil {
			return fmt.Errorf("invalid warmup: %w", err)
		}
		cfg.Rollout.Warmup = d
	}
	return nil
}
