// Copyright 2025 The R-Server Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/harrison-ifeanyichukwu/r-server/config/codec"
)

// extensionFormats maps file extensions to codec types.
var extensionFormats = map[string]codec.Type{
	".json": codec.TypeJSON,
	".yaml": codec.TypeYAML,
	".yml":  codec.TypeYAML,
	".toml": codec.TypeTOML,
}

// detectFormat picks the codec type from a file extension. Extensionless or
// unknown paths need WithFileAs with an explicit type.
func detectFormat(path string) (codec.Type, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := extensionFormats[ext]; ok {
		return t, nil
	}
	return "", fmt.Errorf("no codec for file extension %q", ext)
}
