// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package main

import (
	"flag"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/wikifarm/scrubd/setup/config"
)

func main() {
	flag.Parse()

	cfg := &config.Scrubd{}
	cfg.Defaults(config.DefaultOpts{Generate: true})

	j, err := yaml.Marshal(cfg)
	if err != nil {
		panic(err)
	}
	fmt.Println(string(j))
}
