package ingress

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/client-go/kubernetes"
)

// ChallengePublisher makes the HTTP-01 challenge response reachable at
// http://<hostname>/.well-known/acme-challenge/<token> for the duration of
// the challenge.
type ChallengePublisher interface {
	Publish(ctx context.Context, token, keyAuth string) error
	Unpublish(ctx context.Context, token string) error
}

const (
	solverNamespace = "cloudplane-acme"
	solverPort      = 8089
	solverImage     = "ghcr.io/cloudplane/acme-responder:1.2.0"
)

// KubernetesPublisher publishes the challenge by running a small responder
// workload behind the ingress: a single-replica deployment serving the key
// authorization, a service in front of it, and an ingress route for the
// challenge path.
type KubernetesPublisher struct {
	Client   kubernetes.Interface
	Hostname string
}

// NewKubernetesPublisher creates a publisher for the given hostname.
func NewKubernetesPublisher(client kubernetes.Interface, hostname string) *KubernetesPublisher {
	return &KubernetesPublisher{Client: client, Hostname: hostname}
}

// Publish implements ChallengePublisher.
func (p *KubernetesPublisher) Publish(ctx context.Context, token, keyAuth string) error {
	if err := p.ensureNamespace(ctx); err != nil {
		return err
	}

	name := solverName(token)
	labels := map[string]string{"app.kubernetes.io/name": name}
	replicas := int32(1)

	deployment := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: solverNamespace, Labels: labels},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:  "responder",
						Image: solverImage,
						Args: []string{
							fmt.Sprintf("--listen=:%d", solverPort),
							"--token=" + token,
							"--key-auth=" + keyAuth,
						},
						Ports: []corev1.ContainerPort{{ContainerPort: solverPort}},
					}},
				},
			},
		},
	}
	if _, err := p.Client.AppsV1().Deployments(solverNamespace).Create(ctx, deployment, metav1.CreateOptions{}); err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create solver deployment: %w", err)
	}

	service := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: solverNamespace, Labels: labels},
		Spec: corev1.ServiceSpec{
			Selector: labels,
			Ports: []corev1.ServicePort{{
				Port:       solverPort,
				TargetPort: intstr.FromInt32(solverPort),
			}},
		},
	}
	if _, err := p.Client.CoreV1().Services(solverNamespace).Create(ctx, service, metav1.CreateOptions{}); err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create solver service: %w", err)
	}

	pathType := networkingv1.PathTypeExact
	route := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: solverNamespace, Labels: labels},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{{
				Host: p.Hostname,
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{
							Path:     "/.well-known/acme-challenge/" + token,
							PathType: &pathType,
							Backend: networkingv1.IngressBackend{
								Service: &networkingv1.IngressServiceBackend{
									Name: name,
									Port: networkingv1.ServiceBackendPort{Number: solverPort},
								},
							},
						}},
					},
				},
			}},
		},
	}
	if _, err := p.Client.NetworkingV1().Ingresses(solverNamespace).Create(ctx, route, metav1.CreateOptions{}); err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create solver route: %w", err)
	}

	return nil
}

// Unpublish implements ChallengePublisher.
func (p *KubernetesPublisher) Unpublish(ctx context.Context, token string) error {
	name := solverName(token)
	opts := metav1.DeleteOptions{}

	if err := p.Client.NetworkingV1().Ingresses(solverNamespace).Delete(ctx, name, opts); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete solver route: %w", err)
	}
	if err := p.Client.CoreV1().Services(solverNamespace).Delete(ctx, name, opts); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete solver service: %w", err)
	}
	if err := p.Client.AppsV1().Deployments(solverNamespace).Delete(ctx, name, opts); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete solver deployment: %w", err)
	}
	return nil
}

func (p *KubernetesPublisher) ensureNamespace(ctx context.Context) error {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: solverNamespace}}
	if _, err := p.Client.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{}); err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create solver namespace: %w", err)
	}
	return nil
}

func solverName(token string) string {
	// Tokens are base64url, which is not a valid resource name. Hash to a
	// short deterministic suffix instead.
	sum := sha256.Sum256([]byte(token))
	return "acme-solver-" + hex.EncodeToString(sum[:6])
}
