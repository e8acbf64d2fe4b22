package kube

import (
	"bytes"
	"context"
	"fmt"
	"io"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/dynamic"
	sigsyaml "sigs.k8s.io/yaml"
)

// DecodeManifests splits a multi-document YAML or JSON stream into objects,
// skipping empty documents.
func DecodeManifests(manifests []byte) ([]*unstructured.Unstructured, error) {
	decoder := yaml.NewYAMLOrJSONDecoder(bytes.NewReader(manifests), 4096)
	var objects []*unstructured.Unstructured
	for {
		obj := &unstructured.Unstructured{}
		if err := decoder.Decode(obj); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to decode manifest: %w", err)
		}
		if len(obj.Object) == 0 {
			continue
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// CanonicalYAML re-encodes a manifest stream as one canonical multi-document
// YAML stream: decoded objects marshalled back with sorted keys and joined
// with document separators. Two streams describing the same objects render
// identically, which dry-run output depends on.
func CanonicalYAML(manifests []byte) ([]byte, error) {
	objects, err := DecodeManifests(manifests)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for i, obj := range objects {
		out, err := sigsyaml.Marshal(obj.Object)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s %s: %w", obj.GetKind(), obj.GetName(), err)
		}
		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(out)
	}
	return buf.Bytes(), nil
}

// ApplyManifests server-side applies every document in the stream, in order.
// Namespace-scoped objects without an explicit namespace land in namespace.
func (c *client) ApplyManifests(ctx context.Context, namespace string, manifests []byte) error {
	objects, err := DecodeManifests(manifests)
	if err != nil {
		return err
	}
	for _, obj := range objects {
		if err := c.applyObject(ctx, namespace, obj); err != nil {
			return err
		}
	}
	return nil
}

// DeleteManifests deletes every document in the stream in reverse order, so
// dependents go before the resources they built on. Objects already gone are
// skipped. The namespace fallback matches ApplyManifests so deletes resolve
// to the same objects.
func (c *client) DeleteManifests(ctx context.Context, namespace string, manifests []byte) error {
	objects, err := DecodeManifests(manifests)
	if err != nil {
		return err
	}
	for i := len(objects) - 1; i >= 0; i-- {
		if err := c.deleteObject(ctx, namespace, objects[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *client) resourceFor(obj *unstructured.Unstructured, defaultNamespace string) (dynamic.ResourceInterface, error) {
	gvk := obj.GroupVersionKind()
	mapping, err := c.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve REST mapping for %s: %w", gvk, err)
	}

	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		namespace := obj.GetNamespace()
		if namespace == "" {
			namespace = defaultNamespace
		}
		if namespace == "" {
			namespace = "default"
		}
		return c.dynamicClient.Resource(mapping.Resource).Namespace(namespace), nil
	}
	return c.dynamicClient.Resource(mapping.Resource), nil
}

func (c *client) applyObject(ctx context.Context, namespace string, obj *unstructured.Unstructured) error {
	dr, err := c.resourceFor(obj, namespace)
	if err != nil {
		return err
	}

	data, err := obj.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", obj.GetName(), err)
	}

	_, err = dr.Patch(ctx, obj.GetName(), types.ApplyPatchType, data, metav1.PatchOptions{
		FieldManager: FieldManager,
	})
	if err != nil {
		return fmt.Errorf("failed to apply %s %s: %w", obj.GetKind(), obj.GetName(), err)
	}
	return nil
}

func (c *client) deleteObject(ctx context.Context, namespace string, obj *unstructured.Unstructured) error {
	dr, err := c.resourceFor(obj, namespace)
	if err != nil {
		return err
	}

	err = dr.Delete(ctx, obj.GetName(), metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete %s %s: %w", obj.GetKind(), obj.GetName(), err)
	}
	return nil
}
