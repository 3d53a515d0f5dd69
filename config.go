//
//  Copyright 2023 The compat authors
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//  	http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

package compat

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AvatarConfig is the on-disk description of an avatar, typically one entry
// of the embedding service's account configuration.
type AvatarConfig struct {
	Name             string          `yaml:"name"`
	HomeFolder       string          `yaml:"home_folder,omitempty"`
	RootFolder       string          `yaml:"root_folder,omitempty"`
	LockInHomeFolder bool            `yaml:"lock_in_home_folder,omitempty"`
	UseImpersonation bool            `yaml:"use_impersonation,omitempty"`
	VirtualFolders   []VirtualFolder `yaml:"virtual_folders,omitempty"`
}

// Avatar builds an immutable Avatar from the configuration.
func (c *AvatarConfig) Avatar() (*Avatar, error) {
	opts := []AvatarOption{
		WithHomeFolder(c.HomeFolder),
		WithRootFolder(c.RootFolder),
	}

	if c.LockInHomeFolder {
		opts = append(opts, WithLockedHomeFolder())
	}

	if c.UseImpersonation {
		opts = append(opts, WithImpersonation())
	}

	if len(c.VirtualFolders) > 0 {
		opts = append(opts, WithVirtualFolders(c.VirtualFolders...))
	}

	return NewAvatar(c.Name, opts...)
}

// LoadAvatarConfig reads a YAML avatar definition from path.
func LoadAvatarConfig(path string) (*AvatarConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read avatar configuration %s: %w", path, err)
	}

	return ParseAvatarConfig(data)
}

// ParseAvatarConfig decodes a YAML avatar definition.
func ParseAvatarConfig(data []byte) (*AvatarConfig, error) {
	cfg := &AvatarConfig{}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("can't parse avatar configuration: %w", err)
	}

	if cfg.Name == "" {
		return nil, InvalidArgumentError("Avatar configuration requires a name.")
	}

	return cfg, nil
}
