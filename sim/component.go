package sim

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// A PortOwner is an element that can communicate with others through ports.
type PortOwner interface {
	AddPort(name string, port Port)
	GetPortByName(name string) Port
	Ports() []Port
}

// A Component is a element that is being simulated.
type Component interface {
	Named
	Handler
	Hookable
	PortOwner

	NotifyRecv(port Port)
	NotifyPortFree(port Port)
}

// ComponentBase provides some functions that other component can use.
type ComponentBase struct {
	HookableBase
	sync.Mutex

	name  string
	ports map[string]Port
}

// NewComponentBase creates a new ComponentBase
func NewComponentBase(name string) *ComponentBase {
	NameMustBeValid(name)

	c := new(ComponentBase)
	c.name = name
	c.ports = make(map[string]Port)

	return c
}

// Name returns the name of the BasicComponent
func (c *ComponentBase) Name() string {
	return c.name
}

// AddPort adds a new port with a given name.
func (c *ComponentBase) AddPort(name string, port Port) {
	if _, found := c.ports[name]; found {
		panic(fmt.Sprintf("port %s already exists on %s", name, c.name))
	}

	c.ports[name] = port
}

// GetPortByName returns the port by the name of the port.
func (c *ComponentBase) GetPortByName(name string) Port {
	port, found := c.ports[name]
	if !found {
		errMsg := fmt.Sprintf(
			"Port %s is not available on component %s.\n", name, c.name)
		errMsg += "Available ports include:\n"
		for n := range c.ports {
			errMsg += fmt.Sprintf("\t%s\n", n)
		}
		fmt.Fprint(os.Stderr, errMsg)

		panic("port not found")
	}

	return port
}

// Ports returns all the ports of the component, sorted by their local names.
func (c *ComponentBase) Ports() []Port {
	names := make([]string, 0, len(c.ports))
	for k := range c.ports {
		names = append(names, k)
	}

	sort.Strings(names)

	list := make([]Port, 0, len(c.ports))
	for _, n := range names {
		list = append(list, c.ports[n])
	}

	return list
}
