package store

import "path/filepath"

// Layout mirrors spec.md §4.1:
//
//	{root}/{task_id}/
//	  task.yaml
//	  state.yaml
//	  actions.log
//	  working_memory.yaml
//	  artifacts/{stage}/...
//	  snapshots/step_{n}.patch
//	  escalations/{esc_id}.yaml

func taskDir(root, taskID string) string {
	return filepath.Join(root, taskID)
}

func taskYAMLPath(root, taskID string) string {
	return filepath.Join(taskDir(root, taskID), "task.yaml")
}

func stateYAMLPath(root, taskID string) string {
	return filepath.Join(taskDir(root, taskID), "state.yaml")
}

func actionsLogPath(root, taskID string) string {
	return filepath.Join(taskDir(root, taskID), "actions.log")
}

func workingMemoryPath(root, taskID string) string {
	return filepath.Join(taskDir(root, taskID), "working_memory.yaml")
}

func artifactsDir(root, taskID, stage string) string {
	return filepath.Join(taskDir(root, taskID), "artifacts", stage)
}

func artifactPath(root, taskID, stage, hash string) string {
	return filepath.Join(artifactsDir(root, taskID, stage), hash)
}

func artifactMetaPath(root, taskID, stage, hash string) string {
	return filepath.Join(artifactsDir(root, taskID, stage), hash+".meta.yaml")
}

func snapshotsDir(root, taskID string) string {
	return filepath.Join(taskDir(root, taskID), "snapshots")
}

func escalationsDir(root, taskID string) string {
	return filepath.Join(taskDir(root, taskID), "escalations")
}

func escalationPath(root, taskID, escID string) string {
	return filepath.Join(escalationsDir(root, taskID), escID+".yaml")
}

func lockPath(root, taskID string) string {
	return filepath.Join(taskDir(root, taskID), "state.lock")
}
