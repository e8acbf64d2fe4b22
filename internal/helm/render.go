package helm

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chartutil"
	"helm.sh/helm/v3/pkg/engine"
)

// Render renders the chart to a multi-document manifest stream. Overrides
// are deep-merged over the chart's default values. CRDs from the chart's
// crds/ directory come first, and template output is ordered by template
// name so repeated renders produce identical bytes.
func Render(ch *chart.Chart, releaseName, namespace string, overrides Values) ([]byte, error) {
	chartDefaults := make(Values)
	if len(ch.Values) > 0 {
		chartDefaults = Values(ch.Values)
	}
	merged := Merge(chartDefaults, overrides).ToMap()

	releaseOptions := chartutil.ReleaseOptions{
		Name:      releaseName,
		Namespace: namespace,
		IsInstall: true,
	}

	// Capabilities pin a modern API surface so templates pick current
	// group versions over removed beta ones.
	capabilities := chartutil.DefaultCapabilities.Copy()
	capabilities.KubeVersion.Version = "v1.31.0"
	capabilities.KubeVersion.Major = "1"
	capabilities.KubeVersion.Minor = "31"

	valuesToRender, err := chartutil.ToRenderValues(ch, merged, releaseOptions, capabilities)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare values: %w", err)
	}

	eng := engine.Engine{
		Strict:   false,
		LintMode: false,
	}
	rendered, err := eng.Render(ch, valuesToRender)
	if err != nil {
		return nil, fmt.Errorf("failed to render templates: %w", err)
	}

	names := make([]string, 0, len(rendered))
	for name, content := range rendered {
		if filepath.Base(name) == "NOTES.txt" {
			continue
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var combined bytes.Buffer
	for _, crd := range ch.CRDObjects() {
		writeDocument(&combined, string(crd.File.Data))
	}
	for _, name := range names {
		writeDocument(&combined, rendered[name])
	}
	return combined.Bytes(), nil
}

func writeDocument(buf *bytes.Buffer, content string) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return
	}
	if buf.Len() > 0 {
		buf.WriteString("\n---\n")
	}
	buf.WriteString(trimmed)
	buf.WriteString("\n")
}
