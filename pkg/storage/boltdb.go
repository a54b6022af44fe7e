package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/corral-dev/corral/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketAgents      = []byte("agents")
	bucketVersions    = []byte("versions")
	bucketDeployments = []byte("deployments")
	bucketNodes       = []byte("nodes")
	bucketRuns        = []byte("runs")
)

// versionKey builds the composite key for an agent version. Agent ids are
// opaque but never contain NUL, so the separator is unambiguous.
func versionKey(agentID, version string) []byte {
	return []byte(agentID + "\x00" + version)
}

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "corral.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindTransient, fmt.Errorf("failed to open database: %w", err))
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketAgents,
			bucketVersions,
			bucketDeployments,
			bucketNodes,
			bucketRuns,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// put marshals v as JSON and upserts it under key in bucket.
func (s *BoltStore) put(bucket, key []byte, v any) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return tx.Bucket(bucket).Put(key, data)
	})
}

// Agent operations

func (s *BoltStore) CreateAgent(agent *types.Agent) error {
	return s.put(bucketAgents, []byte(agent.ID), agent)
}

func (s *BoltStore) GetAgent(id string) (*types.Agent, error) {
	var agent types.Agent
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketAgents).Get([]byte(id))
		if data == nil {
			return errdefs.NotFoundf("agent not found: %s", id)
		}
		return json.Unmarshal(data, &agent)
	})
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (s *BoltStore) ListAgents() ([]*types.Agent, error) {
	var agents []*types.Agent
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAgents).ForEach(func(k, v []byte) error {
			var agent types.Agent
			if err := json.Unmarshal(v, &agent); err != nil {
				return err
			}
			agents = append(agents, &agent)
			return nil
		})
	})
	return agents, err
}

func (s *BoltStore) UpdateAgent(agent *types.Agent) error {
	return s.CreateAgent(agent) // Same as create (upsert)
}

// DeleteAgent removes the agent and cascades to its versions and deployments
// within a single transaction.
func (s *BoltStore) DeleteAgent(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketAgents).Delete([]byte(id)); err != nil {
			return err
		}

		// Versions are keyed by agentID prefix.
		vb := tx.Bucket(bucketVersions)
		prefix := []byte(id + "\x00")
		c := vb.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			if err := vb.Delete(k); err != nil {
				return err
			}
		}

		// Deployments are scanned.
		db := tx.Bucket(bucketDeployments)
		var doomed [][]byte
		err := db.ForEach(func(k, v []byte) error {
			var d types.Deployment
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			if d.AgentID == id {
				doomed = append(doomed, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range doomed {
			if err := db.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Agent version operations

func (s *BoltStore) CreateVersion(version *types.AgentVersion) error {
	return s.put(bucketVersions, versionKey(version.AgentID, version.Version), version)
}

func (s *BoltStore) GetVersion(agentID, version string) (*types.AgentVersion, error) {
	var av types.AgentVersion
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketVersions).Get(versionKey(agentID, version))
		if data == nil {
			return errdefs.NotFoundf("version not found: %s@%s", agentID, version)
		}
		return json.Unmarshal(data, &av)
	})
	if err != nil {
		return nil, err
	}
	return &av, nil
}

func (s *BoltStore) ListVersionsByAgent(agentID string) ([]*types.AgentVersion, error) {
	var versions []*types.AgentVersion
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketVersions).Cursor()
		prefix := []byte(agentID + "\x00")
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var av types.AgentVersion
			if err := json.Unmarshal(v, &av); err != nil {
				return err
			}
			versions = append(versions, &av)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Ordered by created-at descending.
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].CreatedAt.After(versions[j].CreatedAt)
	})
	return versions, nil
}

// Deployment operations

func (s *BoltStore) CreateDeployment(deployment *types.Deployment) error {
	return s.put(bucketDeployments, []byte(deployment.ID), deployment)
}

func (s *BoltStore) GetDeployment(id string) (*types.Deployment, error) {
	var deployment types.Deployment
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketDeployments).Get([]byte(id))
		if data == nil {
			return errdefs.NotFoundf("deployment not found: %s", id)
		}
		return json.Unmarshal(data, &deployment)
	})
	if err != nil {
		return nil, err
	}
	return &deployment, nil
}

func (s *BoltStore) ListDeployments() ([]*types.Deployment, error) {
	var deployments []*types.Deployment
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDeployments).ForEach(func(k, v []byte) error {
			var d types.Deployment
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			deployments = append(deployments, &d)
			return nil
		})
	})
	return deployments, err
}

func (s *BoltStore) ListDeploymentsByAgent(agentID string) ([]*types.Deployment, error) {
	deployments, err := s.ListDeployments()
	if err != nil {
		return nil, err
	}

	var filtered []*types.Deployment
	for _, d := range deployments {
		if d.AgentID == agentID {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

func (s *BoltStore) UpdateDeployment(deployment *types.Deployment) error {
	return s.CreateDeployment(deployment)
}

func (s *BoltStore) DeleteDeployment(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDeployments).Delete([]byte(id))
	})
}

// Node operations

func (s *BoltStore) CreateNode(node *types.Node) error {
	return s.put(bucketNodes, []byte(node.ID), node)
}

func (s *BoltStore) GetNode(id string) (*types.Node, error) {
	var node types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketNodes).Get([]byte(id))
		if data == nil {
			return errdefs.NotFoundf("node not found: %s", id)
		}
		return json.Unmarshal(data, &node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *BoltStore) ListNodes() ([]*types.Node, error) {
	var nodes []*types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNodes).ForEach(func(k, v []byte) error {
			var node types.Node
			if err := json.Unmarshal(v, &node); err != nil {
				return err
			}
			nodes = append(nodes, &node)
			return nil
		})
	})
	return nodes, err
}

func (s *BoltStore) UpdateNode(node *types.Node) error {
	return s.CreateNode(node)
}

func (s *BoltStore) DeleteNode(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNodes).Delete([]byte(id))
	})
}

// Run operations

func (s *BoltStore) CreateRun(run *types.Run) error {
	return s.put(bucketRuns, []byte(run.ID), run)
}

func (s *BoltStore) GetRun(id string) (*types.Run, error) {
	var run types.Run
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRuns).Get([]byte(id))
		if data == nil {
			return errdefs.NotFoundf("run not found: %s", id)
		}
		return json.Unmarshal(data, &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *BoltStore) ListRuns() ([]*types.Run, error) {
	var runs []*types.Run
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			var run types.Run
			if err := json.Unmarshal(v, &run); err != nil {
				return err
			}
			runs = append(runs, &run)
			return nil
		})
	})
	return runs, err
}

func (s *BoltStore) ListRunsByStatus(status types.RunStatus) ([]*types.Run, error) {
	runs, err := s.ListRuns()
	if err != nil {
		return nil, err
	}

	var filtered []*types.Run
	for _, run := range runs {
		if run.Status == status {
			filtered = append(filtered, run)
		}
	}
	return filtered, nil
}

func (s *BoltStore) ListRunsByNode(nodeID string) ([]*types.Run, error) {
	runs, err := s.ListRuns()
	if err != nil {
		return nil, err
	}

	var filtered []*types.Run
	for _, run := range runs {
		if run.NodeID == nodeID {
			filtered = append(filtered, run)
		}
	}
	return filtered, nil
}

func (s *BoltStore) UpdateRun(run *types.Run) error {
	return s.CreateRun(run)
}

func (s *BoltStore) DeleteRun(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).Delete([]byte(id))
	})
}

// Run terminal transitions

// mutateRun loads the run, applies fn and writes it back inside one
// transaction so concurrent transitions cannot interleave.
func (s *BoltStore) mutateRun(runID string, fn func(*types.Run) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		data := b.Get([]byte(runID))
		if data == nil {
			return errdefs.NotFoundf("run not found: %s", runID)
		}
		var run types.Run
		if err := json.Unmarshal(data, &run); err != nil {
			return err
		}
		if err := fn(&run); err != nil {
			return err
		}
		out, err := json.Marshal(&run)
		if err != nil {
			return err
		}
		return b.Put([]byte(runID), out)
	})
}

func (s *BoltStore) CompleteRun(runID string, timings map[string]int64, costs *types.RunCosts) error {
	return s.mutateRun(runID, func(run *types.Run) error {
		if run.Status.Terminal() {
			return errdefs.Conflictf("run %s already terminal: %s", runID, run.Status)
		}
		run.Status = types.RunCompleted
		run.Timings = timings
		run.Costs = costs
		run.TerminalAt = time.Now()
		return nil
	})
}

func (s *BoltStore) FailRun(runID, errorMessage, errorDetails string, timings map[string]int64) error {
	return s.mutateRun(runID, func(run *types.Run) error {
		if run.Status.Terminal() {
			return errdefs.Conflictf("run %s already terminal: %s", runID, run.Status)
		}
		run.Status = types.RunFailed
		run.Timings = timings
		run.Error = &types.RunError{Message: errorMessage, Details: errorDetails}
		run.TerminalAt = time.Now()
		return nil
	})
}

func (s *BoltStore) CancelRun(runID, reason string) error {
	return s.mutateRun(runID, func(run *types.Run) error {
		if run.Status.Terminal() {
			return errdefs.Conflictf("run %s already terminal: %s", runID, run.Status)
		}
		run.Status = types.RunCancelled
		run.Error = &types.RunError{Reason: reason}
		run.TerminalAt = time.Now()
		return nil
	})
}
