// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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

// Package version parses and compares dotted version strings such as the
// API-Version header returned by the inventory source ("4.1", "v3.7.8").
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Error types for version parsing failures
var (
	ErrEmptyVersion      = errors.New("version string is empty")
	ErrTooManyComponents = errors.New("version has more than 3 components")
	ErrNonNumeric        = errors.New("version component is not numeric")
)

// Version is a Major.Minor.Patch triple. Precision records how many
// components were present in the parsed string (1, 2 or 3); comparisons
// only look at the components both sides carry.
type Version struct {
	Major     int    `json:"major" yaml:"major"`
	Minor     int    `json:"minor,omitempty" yaml:"minor,omitempty"`
	Patch     int    `json:"patch,omitempty" yaml:"patch,omitempty"`
	Precision int    `json:"precision,omitempty" yaml:"precision,omitempty"`
	Extras    string `json:"extras,omitempty" yaml:"extras,omitempty"`
}

// String returns the version respecting its precision, without extras.
func (v Version) String() string {
	switch v.Precision {
	case 1:
		return strconv.Itoa(v.Major)
	case 2:
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	default:
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
}

// ParseVersion parses "1", "1.2", "1.2.3" with an optional "v" prefix.
// Anything after a '-' or '+' that follows a digit is kept in Extras.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, ErrEmptyVersion
	}
	s = strings.TrimPrefix(s, "v")

	var v Version
	main := s
	for i := 1; i < len(s); i++ {
		if (s[i] == '-' || s[i] == '+') && s[i-1] >= '0' && s[i-1] <= '9' {
			main, v.Extras = s[:i], s[i:]
			break
		}
	}

	parts := strings.Split(main, ".")
	if len(parts) > 3 {
		return Version{}, ErrTooManyComponents
	}
	for i, part := range parts {
		num, err := strconv.Atoi(part)
		if err != nil || num < 0 || strings.HasPrefix(part, "+") {
			return Version{}, fmt.Errorf("%w: %q", ErrNonNumeric, part)
		}
		switch i {
		case 0:
			v.Major = num
		case 1:
			v.Minor = num
		case 2:
			v.Patch = num
		}
	}
	v.Precision = len(parts)
	return v, nil
}

// MustParseVersion parses s and panics on error. For constants and tests.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(fmt.Sprintf("MustParseVersion: %v", err))
	}
	return v
}

// Compare returns -1, 0 or 1. Only components present in both versions
// are compared, so "4.1" equals "4.1.3".
func (v Version) Compare(other Version) int {
	precision := min(v.Precision, other.Precision)
	if precision == 0 {
		precision = 3
	}
	a := [3]int{v.Major, v.Minor, v.Patch}
	b := [3]int{other.Major, other.Minor, other.Patch}
	for i := 0; i < precision; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// AtLeast reports whether v is equal to or newer than minimum.
func (v Version) AtLeast(minimum Version) bool {
	return v.Compare(minimum) >= 0
}
