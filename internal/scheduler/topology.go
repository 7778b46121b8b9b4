package scheduler

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// TopologyNode is one NUMA node: a locality domain of CPUs sharing fast
// memory.
type TopologyNode struct {
	CPUs []int
}

// Topology describes the machine the scheduler runs on.
type Topology struct {
	Nodes []TopologyNode
}

// NumNodes returns the number of NUMA nodes.
func (t *Topology) NumNodes() int {
	return len(t.Nodes)
}

// NumCPUs returns the total CPU count across nodes.
func (t *Topology) NumCPUs() int {
	total := 0
	for _, n := range t.Nodes {
		total += len(n.CPUs)
	}
	return total
}

// DetectTopology queries sysfs for the NUMA layout and falls back to a
// single node holding every CPU when the machine exposes none.
func DetectTopology() *Topology {
	topo := &Topology{}
	for nodeID := 0; ; nodeID++ {
		path := fmt.Sprintf("/sys/devices/system/node/node%d/cpulist", nodeID)
		data, err := os.ReadFile(path)
		if err != nil {
			break
		}
		cpus := parseCPUList(strings.TrimSpace(string(data)))
		if len(cpus) == 0 {
			continue
		}
		topo.Nodes = append(topo.Nodes, TopologyNode{CPUs: cpus})
	}

	if len(topo.Nodes) == 0 {
		return FakeNumaTopology(1, runtime.NumCPU())
	}
	return topo
}

// FakeNumaTopology fabricates a layout with the given node and per-node
// CPU counts. Tests use it to exercise multi-node scheduling on any
// machine; CPU IDs are assigned round-robin over the real CPUs.
func FakeNumaTopology(nodes, cpusPerNode int) *Topology {
	if nodes <= 0 {
		nodes = 1
	}
	if cpusPerNode <= 0 {
		cpusPerNode = 1
	}
	real := runtime.NumCPU()

	topo := &Topology{}
	cpu := 0
	for n := 0; n < nodes; n++ {
		node := TopologyNode{}
		for c := 0; c < cpusPerNode; c++ {
			node.CPUs = append(node.CPUs, cpu%real)
			cpu++
		}
		topo.Nodes = append(topo.Nodes, node)
	}
	return topo
}

// parseCPUList reads the sysfs cpulist format: "0-3,8,10-11".
func parseCPUList(s string) []int {
	var cpus []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err1 := strconv.Atoi(lo)
			end, err2 := strconv.Atoi(hi)
			if err1 != nil || err2 != nil || end < start {
				continue
			}
			for c := start; c <= end; c++ {
				cpus = append(cpus, c)
			}
			continue
		}
		c, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		cpus = append(cpus, c)
	}
	return cpus
}
