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

package codec

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type TOMLCodecTestSuite struct {
	suite.Suite
	codec TOMLCodec
}

func TestTOMLCodecTestSuite(t *testing.T) {
	suite.Run(t, new(TOMLCodecTestSuite))
}

func (s *TOMLCodecTestSuite) SetupTest() {
	s.codec = TOMLCodec{}
}

func (s *TOMLCodecTestSuite) TestEncode() {
	b, err := s.codec.Encode(map[string]any{"port": 4000})
	s.NoError(err)
	s.Contains(string(b), "port")
}

func (s *TOMLCodecTestSuite) TestDecode() {
	src := "env = \"production\"\nport = 4000\n\n[https]\nenabled = true\n"

	var v map[string]any
	err := s.codec.Decode([]byte(src), &v)
	s.NoError(err)
	s.Equal("production", v["env"])
	s.EqualValues(4000, v["port"])

	https, ok := v["https"].(map[string]any)
	s.True(ok)
	s.Equal(true, https["enabled"])
}

func (s *TOMLCodecTestSuite) TestDecode_Invalid() {
	var v map[string]any
	s.Error(s.codec.Decode([]byte("port = "), &v))
}

func (s *TOMLCodecTestSuite) TestRegistered() {
	enc, err := GetEncoder(TypeTOML)
	s.NoError(err)
	s.NotNil(enc)

	dec, err := GetDecoder(TypeTOML)
	s.NoError(err)
	s.NotNil(dec)
}
