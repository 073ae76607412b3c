/*
Package export renders a published inventory snapshot into the documents
consumed by the automation engine.

Two styles are supported:

  - inventory: the native document, groups with their member hosts and
    static vars, and hosts with their attribute mappings.

    {
      "groups": {
        "manufacturers_cisco": {"hosts": ["R1", "SW1"]},
        ...
      },
      "hosts": {
        "R1": {"attrs": {"platform": "ios", ...}},
        ...
      }
    }

  - ansible: the JSON shape an Ansible dynamic inventory script prints,
    with all.children, per-group hosts and vars, and _meta.hostvars
    carrying ansible_host and the composed variables.

Rendering is a pure function of the snapshot: every slice is sorted and
both encoders emit map keys in sorted order, so the same snapshot always
encodes to the same bytes.

Usage:

	doc := export.Render(snap)
	data, err := export.Encode(doc, serializer.FormatYAML)
*/
package export
