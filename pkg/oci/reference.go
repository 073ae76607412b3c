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

package oci

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"

	apperrors "github.com/netops-tools/invsync/pkg/errors"
)

// URIScheme is the URI scheme for OCI registry output (e.g., "oci://ghcr.io/org/repo:tag").
const URIScheme = "oci://"

// DefaultTag is used when a target names no tag.
const DefaultTag = "latest"

// Reference is a parsed oci:// target.
type Reference struct {
	// Registry is the registry host (e.g., "ghcr.io", "localhost:5000").
	Registry string
	// Repository is the repository path (e.g., "netops/inventory").
	Repository string
	// Tag is the image tag, DefaultTag when the target had none.
	Tag string
}

// IsTarget reports whether target uses the oci:// scheme.
func IsTarget(target string) bool {
	return strings.HasPrefix(strings.TrimSpace(target), URIScheme)
}

// ParseReference parses oci://registry/repository[:tag]. Digest references
// are rejected because a push needs a tag to move.
func ParseReference(target string) (*Reference, error) {
	target = strings.TrimSpace(target)
	if !IsTarget(target) {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("OCI target must start with %s", URIScheme))
	}

	ref, err := reference.ParseNormalizedNamed(strings.TrimPrefix(target, URIScheme))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid OCI reference", err)
	}
	if _, ok := ref.(reference.Digested); ok {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "OCI target must use a tag, not a digest")
	}

	r := &Reference{
		Registry:   reference.Domain(ref),
		Repository: reference.Path(ref),
		Tag:        DefaultTag,
	}
	if tagged, ok := ref.(reference.Tagged); ok {
		r.Tag = tagged.Tag()
	}
	return r, nil
}

// Repo returns registry/repository.
func (r *Reference) Repo() string {
	return r.Registry + "/" + r.Repository
}

// ImageReference returns registry/repository:tag.
func (r *Reference) ImageReference() string {
	return r.Repo() + ":" + r.Tag
}

// String returns the oci:// form.
func (r *Reference) String() string {
	return URIScheme + r.ImageReference()
}
