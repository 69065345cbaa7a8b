// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/sugipamo/project-cph/services/workflow/step"
)

// CphConfig is the root configuration document.
type CphConfig struct {
	WorkspacePath       string `yaml:"workspace_path" validate:"required"`
	ContestCurrentPath  string `yaml:"contest_current_path" validate:"required"`
	ContestStockPath    string `yaml:"contest_stock_path"`
	ContestTemplatePath string `yaml:"contest_template_path"`
	ContestTempPath     string `yaml:"contest_temp_path"`
	HistoryPath         string `yaml:"history_path"`

	Languages map[string]LanguageConfig `yaml:"languages" validate:"required,dive"`
}

// LanguageConfig contributes per-command workflows for one language.
type LanguageConfig struct {
	SourceFileName string `yaml:"source_file_name" validate:"required"`
	LanguageID     string `yaml:"language_id"`
	RunCommand     string `yaml:"run_command"`

	// FilePatterns maps a pattern name to an ordered glob list,
	// e.g. test_files: ["test/*.in", "test/*.out"].
	FilePatterns map[string][]string `yaml:"file_patterns"`

	Commands map[string]CommandConfig `yaml:"commands" validate:"dive"`
}

// CommandConfig is one named workflow of a language.
type CommandConfig struct {
	Steps    []StepDefinition `yaml:"steps" validate:"required,min=1,dive"`
	Parallel ParallelConfig   `yaml:"parallel"`
}

// ParallelConfig selects the execution mode for a command.
type ParallelConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxWorkers int  `yaml:"max_workers" validate:"omitempty,min=1"`
}

// StepDefinition is the YAML form of one declarative step.
type StepDefinition struct {
	Type         string   `yaml:"type" validate:"required"`
	Cmd          []string `yaml:"cmd" validate:"required,min=1"`
	Name         string   `yaml:"name"`
	Cwd          string   `yaml:"cwd"`
	When         string   `yaml:"when"`
	AllowFailure bool     `yaml:"allow_failure"`
	ShowOutput   bool     `yaml:"show_output"`
	ForceEnvType string   `yaml:"force_env_type"`
	MaxWorkers   int      `yaml:"max_workers" validate:"omitempty,min=1"`
}

// Record converts the definition into the engine's record form.
func (d StepDefinition) Record() step.Record {
	r := step.Record{
		"type":          d.Type,
		"cmd":           d.Cmd,
		"allow_failure": d.AllowFailure,
		"show_output":   d.ShowOutput,
	}
	if d.Name != "" {
		r["name"] = d.Name
	}
	if d.Cwd != "" {
		r["cwd"] = d.Cwd
	}
	if d.When != "" {
		r["when"] = d.When
	}
	if d.ForceEnvType != "" {
		r["force_env_type"] = d.ForceEnvType
	}
	if d.MaxWorkers > 0 {
		r["max_workers"] = d.MaxWorkers
	}
	return r
}

// Records converts every step of a command.
func (c CommandConfig) Records() []step.Record {
	records := make([]step.Record, 0, len(c.Steps))
	for _, s := range c.Steps {
		records = append(records, s.Record())
	}
	return records
}

// Validate checks the document against its struct tags.
func (c *CphConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Command looks up a language's workflow by name.
func (c *CphConfig) Command(language, command string) (CommandConfig, error) {
	lang, ok := c.Languages[language]
	if !ok {
		return CommandConfig{}, fmt.Errorf("unknown language %q", language)
	}
	cmd, ok := lang.Commands[command]
	if !ok {
		return CommandConfig{}, fmt.Errorf("language %q has no command %q", language, command)
	}
	return cmd, nil
}

// StepContext assembles the evaluation context for one run.
func (c *CphConfig) StepContext(contest, problem, language, envType, command string) (*step.Context, error) {
	lang, ok := c.Languages[language]
	if !ok {
		return nil, fmt.Errorf("unknown language %q", language)
	}
	return &step.Context{
		ContestName:         contest,
		ProblemName:         problem,
		Language:            language,
		EnvType:             envType,
		CommandType:         command,
		WorkspacePath:       c.WorkspacePath,
		ContestCurrentPath:  c.ContestCurrentPath,
		ContestStockPath:    c.ContestStockPath,
		ContestTemplatePath: c.ContestTemplatePath,
		ContestTempPath:     c.ContestTempPath,
		SourceFileName:      lang.SourceFileName,
		LanguageID:          lang.LanguageID,
		RunCommand:          lang.RunCommand,
		FilePatterns:        lang.FilePatterns,
	}, nil
}

// DefaultConfig returns the document written on first run.
func DefaultConfig() CphConfig {
	return CphConfig{
		WorkspacePath:       "./workspace",
		ContestCurrentPath:  "./workspace/current",
		ContestStockPath:    "./workspace/stock",
		ContestTemplatePath: "./workspace/template",
		ContestTempPath:     "./workspace/tmp",
		HistoryPath:         "./workspace/.history",
		Languages: map[string]LanguageConfig{
			"python": {
				SourceFileName: "main.py",
				LanguageID:     "5078",
				RunCommand:     "python3 main.py",
				FilePatterns: map[string][]string{
					"test_files": {"test/*.in", "test/*.out"},
				},
				Commands: map[string]CommandConfig{
					"open": {
						Steps: []StepDefinition{
							{
								Type:         "mkdir",
								Cmd:          []string{"{contest_current_path}"},
								AllowFailure: true,
							},
							{
								Type: "copy",
								Cmd:  []string{"{contest_template_path}/main.py", "{contest_current_path}/{source_file_name}"},
								When: "test -d {contest_template_path}",
							},
						},
					},
					"test": {
						Steps: []StepDefinition{
							{
								Type:       "test",
								Cmd:        []string{"run", "{contest_current_path}/{source_file_name}"},
								ShowOutput: true,
							},
						},
						Parallel: ParallelConfig{Enabled: true, MaxWorkers: 4},
					},
				},
			},
		},
	}
}
