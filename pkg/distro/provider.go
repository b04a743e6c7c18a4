package distro

import (
	"fmt"

	"github.com/odvcencio/rpdist/pkg/task"
)

// Provider contributes tasks, and possibly package formats, to a build.
type Provider struct {
	Name string
	// Install registers the formats of the provider on c and returns its
	// tasks.
	Install func(c *Context) ([]*Task, error)
}

// Core returns the providers of the base pipeline in registration order.
func Core() []Provider {
	static := func(name string, tasks func() []*Task) Provider {
		return Provider{Name: name, Install: func(*Context) ([]*Task, error) { return tasks(), nil }}
	}
	return []Provider{
		static("system", SystemTasks),
		static("classify", ClassifyTasks),
		static("prepare", PrepareTasks),
		static("build", BuildTasks),
	}
}

// Install loads providers in order into a new registry. Tasks without
// edges run after the task registered before them.
func Install(c *Context, providers ...Provider) (*task.Registry[*Context], error) {
	var all []*Task
	for _, p := range providers {
		tasks, err := p.Install(c)
		if err != nil {
			return nil, fmt.Errorf("install %s: %w", p.Name, err)
		}
		c.Log.WithField("provider", p.Name).WithField("tasks", len(tasks)).Debug("installed")
		all = append(all, tasks...)
	}

	reg := task.NewRegistry[*Context]()
	if err := reg.Register(task.Sequence(all...)...); err != nil {
		return nil, err
	}
	return reg, nil
}
