package sim

// A Simulation keeps track of all the components and ports that participate
// in a simulation run.
type Simulation struct {
	engine Engine

	components    []Component
	compNameIndex map[string]int
	ports         []Port
	portNameIndex map[string]int
}

// NewSimulation creates a new simulation that uses the given engine.
func NewSimulation(engine Engine) *Simulation {
	return &Simulation{
		engine:        engine,
		compNameIndex: make(map[string]int),
		portNameIndex: make(map[string]int),
	}
}

// Engine returns the event engine that drives the simulation.
func (s *Simulation) Engine() Engine {
	return s.engine
}

// RegisterComponent registers a component and all its ports with the
// simulation.
func (s *Simulation) RegisterComponent(c Component) {
	compName := c.Name()
	if _, found := s.compNameIndex[compName]; found {
		panic("component " + compName + " already registered")
	}

	s.components = append(s.components, c)
	s.compNameIndex[compName] = len(s.components) - 1

	for _, p := range c.Ports() {
		s.registerPort(p)
	}
}

func (s *Simulation) registerPort(p Port) {
	portName := p.Name()
	if _, found := s.portNameIndex[portName]; found {
		panic("port " + portName + " already registered")
	}

	s.ports = append(s.ports, p)
	s.portNameIndex[portName] = len(s.ports) - 1
}

// Components returns all the registered components.
func (s *Simulation) Components() []Component {
	return s.components
}

// GetComponentByName returns the component with the given name.
func (s *Simulation) GetComponentByName(name string) Component {
	index, found := s.compNameIndex[name]
	if !found {
		return nil
	}
	return s.components[index]
}

// GetPortByName returns the port with the given name.
func (s *Simulation) GetPortByName(name string) Port {
	index, found := s.portNameIndex[name]
	if !found {
		return nil
	}
	return s.ports[index]
}
