package inventory

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/netops-tools/invsync/pkg/errors"
)

//go:embed record.schema.json
var recordSchemaJSON string

var recordSchema *gojsonschema.Schema

func init() {
	var err error
	recordSchema, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchemaJSON))
	if err != nil {
		panic("inventory: record schema initialization failed: " + err.Error())
	}
}

// Err returns the skip as a SCHEMA structured error.
func (s SkipReason) Err() *errors.StructuredError {
	return errors.NewWithContext(errors.ErrCodeSchema, s.Reason, map[string]any{
		"resource": s.Resource,
		"index":    s.Index,
		"name":     s.Name,
	})
}

// Normalize converts raw records into hosts sorted by name. Records that fail
// schema checks, lack a name or platform, or repeat an earlier host name are
// skipped and reported. Normalize never fails as a whole.
func Normalize(raw *Raw) ([]Host, []SkipReason) {
	if raw == nil {
		return []Host{}, nil
	}

	var skipped []SkipReason
	platforms := make(map[string]platformInfo, len(raw.Platforms))
	for i, p := range raw.Platforms {
		slug, info, err := parsePlatform(p)
		if err != nil {
			skipped = append(skipped, SkipReason{
				Resource: ResourcePlatforms,
				Index:    i,
				Reason:   err.Error(),
			})
			continue
		}
		platforms[slug] = info
	}

	hosts := make([]Host, 0, raw.Len())
	seen := make(map[string]struct{}, raw.Len())

	add := func(resource string, kind HostKind, records []json.RawMessage) {
		for i, data := range records {
			h, err := normalizeRecord(data, kind, platforms)
			if err != nil {
				skipped = append(skipped, SkipReason{
					Resource: resource,
					Index:    i,
					Name:     h.Name,
					Reason:   err.Error(),
				})
				continue
			}
			if _, dup := seen[h.Name]; dup {
				skipped = append(skipped, SkipReason{
					Resource: resource,
					Index:    i,
					Name:     h.Name,
					Reason:   "duplicate host name",
				})
				continue
			}
			seen[h.Name] = struct{}{}
			hosts = append(hosts, h)
		}
	}
	add(ResourceDevices, KindDevice, raw.Devices)
	add(ResourceVirtualMachines, KindVirtualMachine, raw.VirtualMachines)

	SortHosts(hosts)
	return hosts, skipped
}

// normalizeRecord builds one host. On error the returned host carries the
// record name when it could be determined.
func normalizeRecord(data json.RawMessage, kind HostKind, platforms map[string]platformInfo) (Host, error) {
	var rec record
	decodeErr := json.Unmarshal(data, &rec)
	name := strings.TrimSpace(rec.Name)

	result, err := recordSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Host{Name: name}, fmt.Errorf("invalid record: %w", err)
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return Host{Name: name}, fmt.Errorf("schema: %s", strings.Join(reasons, "; "))
	}
	if decodeErr != nil {
		return Host{Name: name}, fmt.Errorf("invalid record: %w", decodeErr)
	}
	if name == "" {
		return Host{}, fmt.Errorf("missing name")
	}
	platform := rec.Platform.key()
	if platform == "" {
		return Host{Name: name}, fmt.Errorf("missing platform")
	}

	h := Host{
		ID:           rec.ID,
		Name:         name,
		Kind:         kind,
		Platform:     platform,
		Manufacturer: rec.manufacturer(),
		Site:         rec.Site.key(),
		Role:         rec.role(),
		Status:       rec.Status.key(),
		Address:      rec.address(),
		Attributes:   make(map[string]string),
	}

	for _, t := range rec.Tags {
		if k := t.key(); k != "" && !slices.Contains(h.Tags, k) {
			h.Tags = append(h.Tags, k)
		}
	}
	slices.Sort(h.Tags)

	for k, v := range rec.CustomFields {
		if s, ok := scalarString(v); ok && s != "" {
			h.Attributes["cf_"+k] = s
		}
	}

	if info, ok := platforms[platform]; ok {
		if h.Manufacturer == "" {
			h.Manufacturer = info.manufacturer
		}
		for k, v := range info.attrs {
			h.Attributes[k] = v
		}
	}

	if len(h.Attributes) == 0 {
		h.Attributes = nil
	}
	return h, nil
}
