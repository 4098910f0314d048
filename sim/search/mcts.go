package search

import (
	"math"

	"github.com/jobshop-sim/jobshop-sim/sim"
)

// ucbC is the UCB1 exploration constant.
const ucbC = 1.414

// defaultMCTSIterations caps an otherwise unbounded MCTS run; unlike the
// tree searches, MCTS never finishes on its own.
const defaultMCTSIterations = 2000

// mctsNode is one tree node. Its snapshot captures the simulator stopped at
// the node's decision epoch, so selection restores instead of replaying.
type mctsNode struct {
	parent *mctsNode
	action sim.Action // the decision that led here; zero at the root

	snapshot *sim.Snapshot
	plan     []sim.Action // decisions from the root to this node

	untried  []sim.Action
	children []*mctsNode

	visits int
	reward float64 // accumulated negated makespans
}

// mcts runs Monte Carlo tree search from the current decision epoch:
// UCB1 selection, single-child expansion, heuristic rollout, and
// negated-objective backpropagation. Every rollout that completes a schedule
// also competes for the incumbent, so the result is always the best complete
// schedule seen, not just the most-visited arm.
func (o *Optimizer) mcts(s *sim.Simulator) error {
	if o.budget.maxNodes == 0 && o.budget.deadline.IsZero() {
		o.budget.maxNodes = defaultMCTSIterations
	}
	rootSnap, err := s.Snapshot()
	if err != nil {
		return err
	}
	root := &mctsNode{snapshot: rootSnap, untried: s.LegalActions()}
	if len(root.untried) == 0 {
		if s.IsTerminal() {
			o.observe(s.Objective(), nil)
		} else {
			objective, taken, err := o.rollout(s)
			if err != nil {
				return err
			}
			o.observe(objective, taken)
		}
		return nil
	}

	for o.budget.visit() {
		node := o.selectNode(root)
		if err := s.Restore(node.snapshot); err != nil {
			return err
		}

		if len(node.untried) > 0 {
			child, err := o.expand(s, node)
			if err != nil {
				return err
			}
			node = child
		}

		objective, taken, err := o.rollout(s)
		if err != nil {
			return err
		}
		if !math.IsInf(objective, 1) {
			o.observe(objective, append(append([]sim.Action(nil), node.plan...), taken...))
		}
		backpropagate(node, -objective)
	}
	return nil
}

// selectNode descends from the root through fully expanded nodes by UCB1.
func (o *Optimizer) selectNode(root *mctsNode) *mctsNode {
	node := root
	for len(node.untried) == 0 && len(node.children) > 0 {
		node = node.bestChild()
	}
	return node
}

func (n *mctsNode) bestChild() *mctsNode {
	best := n.children[0]
	bestScore := math.Inf(-1)
	for _, c := range n.children {
		score := c.reward/float64(c.visits) +
			ucbC*math.Sqrt(math.Log(float64(n.visits))/float64(c.visits))
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best
}

// expand applies one untried action (picked uniformly), runs to the next
// decision epoch, and adds the resulting child. The simulator is left in the
// child's state for the rollout.
func (o *Optimizer) expand(s *sim.Simulator, node *mctsNode) (*mctsNode, error) {
	i := o.rnd.Intn(len(node.untried))
	action := node.untried[i]
	node.untried = append(node.untried[:i], node.untried[i+1:]...)

	if _, err := s.Apply(action); err != nil {
		return nil, err
	}
	if err := s.RunToDecision(); err != nil {
		return nil, err
	}
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	child := &mctsNode{
		parent:   node,
		action:   action,
		snapshot: snap,
		plan:     append(append([]sim.Action(nil), node.plan...), action),
		untried:  s.LegalActions(),
	}
	node.children = append(node.children, child)
	return child, nil
}

func backpropagate(node *mctsNode, reward float64) {
	for n := node; n != nil; n = n.parent {
		n.visits++
		n.reward += reward
	}
}
