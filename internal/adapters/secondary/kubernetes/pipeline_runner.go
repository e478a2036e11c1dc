package kubernetes

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	batchv1 "k8s.io/api/batch/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"caption-service/internal/core/domain"
	output "caption-service/internal/core/ports/output"
)

const (
	annotationInstantiate = "cronjob.kubernetes.io/instantiate"
	labelPipeline         = "caption.pipeline"
)

// pipelineRunner starts a training run by instantiating a Job from the
// CronJob that carries the pipeline name, like `kubectl create job --from`.
type pipelineRunner struct {
	client    kubernetes.Interface
	namespace string
}

// NewPipelineRunner creates a PipelineRunner backed by CronJobs in namespace.
func NewPipelineRunner(client kubernetes.Interface, namespace string) output.PipelineRunner {
	if namespace == "" {
		namespace = "default"
	}
	return &pipelineRunner{client: client, namespace: namespace}
}

// StartExecution returns "<namespace>/<job name>".
func (r *pipelineRunner) StartExecution(ctx context.Context, pipelineName string) (string, error) {
	cron, err := r.client.BatchV1().CronJobs(r.namespace).Get(ctx, pipelineName, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return "", fmt.Errorf("%w: cronjob %s/%s", domain.ErrPipelineNotFound, r.namespace, pipelineName)
		}
		return "", fmt.Errorf("get cronjob: %w", err)
	}

	job := jobFromCronJob(cron)
	created, err := r.client.BatchV1().Jobs(r.namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	return fmt.Sprintf("%s/%s", created.Namespace, created.Name), nil
}

func jobFromCronJob(cron *batchv1.CronJob) *batchv1.Job {
	tmpl := cron.Spec.JobTemplate

	annotations := map[string]string{annotationInstantiate: "manual"}
	for k, v := range tmpl.Annotations {
		annotations[k] = v
	}
	labels := map[string]string{labelPipeline: cron.Name}
	for k, v := range tmpl.Labels {
		labels[k] = v
	}

	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:        fmt.Sprintf("%s-%s", cron.Name, uuid.New().String()[:8]),
			Namespace:   cron.Namespace,
			Annotations: annotations,
			Labels:      labels,
			OwnerReferences: []metav1.OwnerReference{
				*metav1.NewControllerRef(cron, batchv1.SchemeGroupVersion.WithKind("CronJob")),
			},
		},
		Spec: *tmpl.Spec.DeepCopy(),
	}
}
