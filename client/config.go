/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package client

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Config specifies a client's connection parameters, loaded from an
// on-disk YAML file (spec §4.4 supplement, same shape as the corpus's
// sptp/client.Config).
type Config struct {
	Address     string        `yaml:"address"`
	Identity    string        `yaml:"identity"`
	Auth        bool          `yaml:"auth"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	SendTimeout time.Duration `yaml:"send_timeout"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// DefaultConfig returns Config initialized with default values.
func DefaultConfig() *Config {
	return &Config{
		Address:     fmt.Sprintf(":%d", DefaultPort),
		Auth:        true,
		ReadTimeout: 60 * time.Second,
		SendTimeout: 30 * time.Second,
		DialTimeout: DefaultDialTimeout,
	}
}

// Validate reports whether c is sane.
func (c *Config) Validate() error {
	if c.Address == "" {
		return errors.New("address must be specified")
	}
	if c.Identity == "" {
		return errors.New("identity must be specified")
	}
	if c.ReadTimeout <= 0 {
		return errors.New("read_timeout must be greater than zero")
	}
	if c.SendTimeout <= 0 {
		return errors.New("send_timeout must be greater than zero")
	}
	if c.DialTimeout <= 0 {
		return errors.New("dial_timeout must be greater than zero")
	}
	return nil
}

// ReadConfig reads Config from path, applying defaults for any field
// the file leaves unset before validating the result.
func ReadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config from %q", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return c, nil
}

// Options translates a Config into the Option list Connect expects.
func (c *Config) Options() []Option {
	opts := []Option{
		WithReadTimeout(c.ReadTimeout),
		WithSendTimeout(c.SendTimeout),
		WithDialTimeout(c.DialTimeout),
	}
	if !c.Auth {
		opts = append(opts, WithoutAuth())
	}
	return opts
}
