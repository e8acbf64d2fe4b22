package kube

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// EnsureNamespace creates the namespace if it does not exist and reconciles
// the given labels onto it. Existing labels set by other controllers are
// left alone.
func (c *client) EnsureNamespace(ctx context.Context, name string, labels map[string]string) error {
	namespaces := c.clientset.CoreV1().Namespaces()

	existing, err := namespaces.Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		ns := &corev1.Namespace{
			ObjectMeta: metav1.ObjectMeta{
				Name:   name,
				Labels: labels,
			},
		}
		if _, err := namespaces.Create(ctx, ns, metav1.CreateOptions{}); err != nil {
			return fmt.Errorf("failed to create namespace %s: %w", name, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get namespace %s: %w", name, err)
	}

	changed := false
	for key, value := range labels {
		if existing.Labels[key] != value {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}

	if existing.Labels == nil {
		existing.Labels = make(map[string]string, len(labels))
	}
	for key, value := range labels {
		existing.Labels[key] = value
	}
	if _, err := namespaces.Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to update namespace %s: %w", name, err)
	}
	return nil
}

// PodSecurityLabels returns the pod-security admission labels for a policy
// level. An empty level returns nil, leaving the namespace unlabeled.
func PodSecurityLabels(level string) map[string]string {
	if level == "" {
		return nil
	}
	return map[string]string{
		"pod-security.kubernetes.io/enforce": level,
		"pod-security.kubernetes.io/warn":    level,
	}
}
