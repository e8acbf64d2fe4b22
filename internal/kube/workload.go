package kube

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	corev1 "k8s.io/api/core/v1"
)

// WorkloadReady reports rollout completion for the named workload. The name
// is tried as a deployment, then a statefulset, then a daemonset, because
// charts differ in which controller they deploy. A workload that does not
// exist yet is reported as not ready rather than as an error, so callers can
// poll while the controller creates it.
func (c *client) WorkloadReady(ctx context.Context, namespace, name string) (bool, string, error) {
	deployment, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		desired := int32(1)
		if deployment.Spec.Replicas != nil {
			desired = *deployment.Spec.Replicas
		}
		status := deployment.Status
		ready := status.ObservedGeneration >= deployment.Generation &&
			status.UpdatedReplicas == desired &&
			status.ReadyReplicas == desired
		message := fmt.Sprintf("deployment %s/%s: %d/%d replicas ready", namespace, name, status.ReadyReplicas, desired)
		return ready, message, nil
	}
	if !apierrors.IsNotFound(err) {
		return false, "", fmt.Errorf("failed to get deployment %s/%s: %w", namespace, name, err)
	}

	statefulSet, err := c.clientset.AppsV1().StatefulSets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		desired := int32(1)
		if statefulSet.Spec.Replicas != nil {
			desired = *statefulSet.Spec.Replicas
		}
		status := statefulSet.Status
		ready := status.ObservedGeneration >= statefulSet.Generation &&
			status.UpdatedReplicas == desired &&
			status.ReadyReplicas == desired
		message := fmt.Sprintf("statefulset %s/%s: %d/%d replicas ready", namespace, name, status.ReadyReplicas, desired)
		return ready, message, nil
	}
	if !apierrors.IsNotFound(err) {
		return false, "", fmt.Errorf("failed to get statefulset %s/%s: %w", namespace, name, err)
	}

	daemonSet, err := c.clientset.AppsV1().DaemonSets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		status := daemonSet.Status
		desired := status.DesiredNumberScheduled
		ready := status.ObservedGeneration >= daemonSet.Generation &&
			status.UpdatedNumberScheduled == desired &&
			status.NumberReady == desired
		message := fmt.Sprintf("daemonset %s/%s: %d/%d pods ready", namespace, name, status.NumberReady, desired)
		return ready, message, nil
	}
	if !apierrors.IsNotFound(err) {
		return false, "", fmt.Errorf("failed to get daemonset %s/%s: %w", namespace, name, err)
	}

	message := fmt.Sprintf("no deployment, statefulset, or daemonset named %s in namespace %s", name, namespace)
	return false, message, nil
}

// PodsNotReady lists the pods in a namespace that are not running with all
// containers ready. Completed and terminating pods are skipped.
func (c *client) PodsNotReady(ctx context.Context, namespace string) ([]string, error) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods in %s: %w", namespace, err)
	}

	var findings []string
	for _, pod := range pods.Items {
		if pod.Status.Phase == corev1.PodSucceeded || pod.DeletionTimestamp != nil {
			continue
		}
		if pod.Status.Phase != corev1.PodRunning {
			finding := fmt.Sprintf("pod %s/%s is %s", namespace, pod.Name, pod.Status.Phase)
			if reason := pendingReason(pod); reason != "" {
				finding += " (" + reason + ")"
			}
			findings = append(findings, finding)
			continue
		}
		for _, container := range pod.Status.ContainerStatuses {
			if container.Ready {
				continue
			}
			reason := "not ready"
			if container.State.Waiting != nil && container.State.Waiting.Reason != "" {
				reason = container.State.Waiting.Reason
			}
			findings = append(findings, fmt.Sprintf("pod %s/%s container %s: %s", namespace, pod.Name, container.Name, reason))
		}
	}
	return findings, nil
}

// pendingReason pulls the most specific waiting reason out of a non-running
// pod, preferring container-level reasons over the pod-level one.
func pendingReason(pod corev1.Pod) string {
	for _, container := range pod.Status.ContainerStatuses {
		if container.State.Waiting != nil && container.State.Waiting.Reason != "" {
			return container.State.Waiting.Reason
		}
	}
	return pod.Status.Reason
}
