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

package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

type EnvTestSuite struct {
	suite.Suite
}

func TestEnvTestSuite(t *testing.T) {
	suite.Run(t, new(EnvTestSuite))
}

func (s *EnvTestSuite) TestLoad_Prefix() {
	s.T().Setenv("RSRVTEST_PORT", "4000")
	s.T().Setenv("RSRVTEST_HTTPS_ENABLED", "true")
	s.T().Setenv("UNRELATED", "skip")

	values, err := NewEnv("RSRVTEST_").Load(context.Background())
	s.NoError(err)
	s.Equal("4000", values["port"])

	https, ok := values["https"].(map[string]any)
	s.True(ok)
	s.Equal("true", https["enabled"])
	s.NotContains(values, "unrelated")
}

func (s *EnvTestSuite) TestLoad_NoMatches() {
	values, err := NewEnv("RSRVTEST_NOTHING_SET_").Load(context.Background())
	s.NoError(err)
	s.Empty(values)
}

func (s *EnvTestSuite) TestLoad_ValuesStayStrings() {
	s.T().Setenv("RSRVTEST_MAXMEMORY", "2mb")

	values, err := NewEnv("RSRVTEST_").Load(context.Background())
	s.NoError(err)
	s.Equal("2mb", values["maxmemory"])
}
