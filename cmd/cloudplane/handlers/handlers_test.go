package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudplane/cloudplane/internal/provisioning"
	"github.com/cloudplane/cloudplane/internal/spec"
	"github.com/cloudplane/cloudplane/internal/store"
	"github.com/cloudplane/cloudplane/pkg/cloud"
	"github.com/cloudplane/cloudplane/pkg/cloud/fake"
)

// saveAndRestoreFactories snapshots the factory variables so tests can
// inject fakes without leaking into each other.
func saveAndRestoreFactories(t *testing.T) {
	origLoadSpec := loadSpec
	origOpenStore := openStore
	origNewProvider := newProvider
	origRunWizard := runWizard
	origWriteFile := writeFile

	t.Cleanup(func() {
		loadSpec = origLoadSpec
		openStore = origOpenStore
		newProvider = origNewProvider
		runWizard = origRunWizard
		writeFile = origWriteFile
	})
}

func validSpec() *spec.Spec {
	return &spec.Spec{
		ClusterName:  "demo",
		Region:       "us-east-1",
		AddressBlock: "10.0.0.0/16",
		Zones:        []string{"us-east-1a", "us-east-1b"},
		Nodes: spec.NodeSpec{
			Min:            1,
			Desired:        3,
			Max:            5,
			InstanceShapes: []string{"m6i.large"},
		},
		Database: spec.DatastoreSpec{
			EngineVersion:     "16.4",
			InstanceClass:     "db.r6g.large",
			StorageGB:         100,
			MultiZoneFailover: true,
			EncryptionKeyRef:  "alias/demo",
			DatabaseName:      "app",
		},
		Cache: spec.DatastoreSpec{
			EngineVersion:     "7.1",
			NodeType:          "cache.r6g.large",
			ClusterCount:      2,
			MultiZoneFailover: true,
			EncryptionKeyRef:  "alias/demo",
		},
		Ingress: spec.IngressSpec{
			Hostname:     "app.example.com",
			ContactEmail: "ops@example.com",
		},
		Observability: spec.ObservabilitySpec{LogRetentionDays: 30},
		State:         spec.StateSpec{Backend: "file", Path: ".cloudplane"},
	}
}

func TestSpecFile(t *testing.T) {
	assert.Equal(t, spec.DefaultFile, specFile(""))
	assert.Equal(t, "staging.yaml", specFile("staging.yaml"))
}

func TestInitWritesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloudplane.yaml")
	require.NoError(t, Init(context.Background(), path, true))

	// The template is a valid spec once defaults are applied.
	s, err := spec.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "my-cluster", s.ClusterName)
	assert.Equal(t, 3, s.Nodes.Desired)
}

func TestInitRefusesToOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloudplane.yaml")
	require.NoError(t, Init(context.Background(), path, true))

	err := Init(context.Background(), path, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to overwrite")
}

func TestInitRunsWizard(t *testing.T) {
	saveAndRestoreFactories(t)

	runWizard = func(context.Context) (*spec.Spec, error) {
		return validSpec(), nil
	}

	path := filepath.Join(t.TempDir(), "cloudplane.yaml")
	require.NoError(t, Init(context.Background(), path, false))

	s, err := spec.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", s.ClusterName)
	assert.Equal(t, "app.example.com", s.Ingress.Hostname)
}

func TestInitWizardAborted(t *testing.T) {
	saveAndRestoreFactories(t)

	runWizard = func(context.Context) (*spec.Spec, error) {
		return nil, errors.New("user cancelled")
	}

	err := Init(context.Background(), filepath.Join(t.TempDir(), "cloudplane.yaml"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wizard aborted")
}

func TestValidateAcceptsTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloudplane.yaml")
	require.NoError(t, Init(context.Background(), path, true))
	assert.NoError(t, Validate(context.Background(), path))
}

func TestValidateRejectsMissingFile(t *testing.T) {
	err := Validate(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsUnsatisfiablePlan(t *testing.T) {
	saveAndRestoreFactories(t)

	s := validSpec()
	s.Zones = []string{"a", "b", "c", "d", "e"}
	loadSpec = func(string) (*spec.Spec, error) { return s, nil }

	assert.Error(t, Validate(context.Background(), "any.yaml"))
}

func TestPlanPrintsActions(t *testing.T) {
	saveAndRestoreFactories(t)

	loadSpec = func(string) (*spec.Spec, error) { return validSpec(), nil }
	openStore = func(*spec.Spec) (store.Store, error) {
		return store.NewFileStore(t.TempDir()), nil
	}

	assert.NoError(t, Plan(context.Background(), "any.yaml"))
}

func TestOutputFailsOnUnprovisionedCluster(t *testing.T) {
	saveAndRestoreFactories(t)

	loadSpec = func(string) (*spec.Spec, error) { return validSpec(), nil }
	openStore = func(*spec.Spec) (store.Store, error) {
		return store.NewFileStore(t.TempDir()), nil
	}

	err := Output(context.Background(), "any.yaml", "yaml")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOutputRejectsUnknownFormat(t *testing.T) {
	saveAndRestoreFactories(t)

	loadSpec = func(string) (*spec.Spec, error) { return validSpec(), nil }

	err := Output(context.Background(), "any.yaml", "toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestDestroyWithoutGraphSucceeds(t *testing.T) {
	saveAndRestoreFactories(t)

	provider := fake.NewProvider()
	loadSpec = func(string) (*spec.Spec, error) { return validSpec(), nil }
	openStore = func(*spec.Spec) (store.Store, error) {
		return store.NewFileStore(t.TempDir()), nil
	}
	newProvider = func(context.Context, *spec.Spec) (cloud.Provider, error) {
		return provider, nil
	}

	require.NoError(t, Destroy(context.Background(), "any.yaml", true))
	assert.Empty(t, provider.Calls)
}

func TestApplySurfacesSpecErrors(t *testing.T) {
	saveAndRestoreFactories(t)

	loadSpec = func(string) (*spec.Spec, error) { return nil, errors.New("no such file") }

	err := Apply(context.Background(), "any.yaml", "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such file")
}

func TestNewObserverSelectsJSONLogger(t *testing.T) {
	t.Parallel()

	assert.IsType(t, &provisioning.ConsoleObserver{}, newObserver(false))
	assert.IsType(t, &provisioning.LogrObserver{}, newObserver(true))
}
