package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/expr-lang/expr"
)

// invoke runs a single node and returns its output map, keyed by output
// port. Agent runs are simulated: outputs are synthesized from the output
// schema, deterministically over the agent and its resolved inputs so the
// output cache stays coherent.
func (e *Engine) invoke(ctx context.Context, rs *runState, node *models.Node, def *models.AgentDefinition, inputs models.JSON) (models.JSON, error) {
	ctx, cancel := context.WithTimeout(ctx, e.nodeTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	switch node.Type {
	case models.NodeTypeInput:
		return runInputNode(rs, node), nil
	case models.NodeTypeOutput:
		return models.JSON{"value": inputs["value"]}, nil
	case models.NodeTypeTool:
		return runToolNode(node, inputs)
	case models.NodeTypeAgent:
		return runAgentNode(node, def, inputs)
	default:
		return nil, fmt.Errorf("unknown node type: %s", node.Type)
	}
}

// runInputNode feeds the execution-level input assigned to this entry point.
// Inputs are keyed by node ID, falling back to the node label.
func runInputNode(rs *runState, node *models.Node) models.JSON {
	value, ok := rs.execution.Inputs[string(node.ID)]
	if !ok {
		value = rs.execution.Inputs[node.Label]
	}
	return models.JSON{"value": value}
}

// runToolNode evaluates the node's expression over its resolved inputs.
// Input ports are in scope as variables. A node without an expression
// passes its inputs through untouched.
func runToolNode(node *models.Node, inputs models.JSON) (models.JSON, error) {
	raw, ok := node.Config.Parameters["expression"]
	if !ok {
		return models.JSON{"result": map[string]interface{}(inputs)}, nil
	}
	expression, ok := raw.(string)
	if !ok || expression == "" {
		return nil, fmt.Errorf("tool node %s: expression must be a non-empty string", node.ID)
	}

	env := map[string]interface{}(inputs)
	program, err := expr.Compile(expression, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("tool node %s: failed to compile expression: %w", node.ID, err)
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("tool node %s: expression failed: %w", node.ID, err)
	}
	return models.JSON{"result": result}, nil
}

// runAgentNode simulates an agent call and synthesizes one value per output
// port. A simulateFailure parameter on the node forces an error, which
// exercises the retry and skip paths end to end.
func runAgentNode(node *models.Node, def *models.AgentDefinition, inputs models.JSON) (models.JSON, error) {
	if def == nil {
		return nil, fmt.Errorf("agent node %s has no definition", node.ID)
	}
	if msg, ok := node.Config.Parameters["simulateFailure"].(string); ok && msg != "" {
		return nil, fmt.Errorf("agent %s: %s", def.ID, msg)
	}

	digest := inputDigest(inputs)
	output := make(models.JSON, len(def.OutputSchema))
	for _, port := range def.OutputSchema {
		output[string(port.Name)] = synthesize(def, port, digest, inputs)
	}
	return output, nil
}

func synthesize(def *models.AgentDefinition, port models.PortSchema, digest string, inputs models.JSON) interface{} {
	switch port.Type {
	case models.DataTypeString:
		return fmt.Sprintf("%s/%s:%s", def.ID, port.Name, digest)
	case models.DataTypeNumber:
		return float64(len(digest))
	case models.DataTypeBoolean:
		return true
	case models.DataTypeArray:
		return []interface{}{
			map[string]interface{}{
				"agentId": string(def.ID),
				"digest":  digest,
			},
		}
	default:
		return map[string]interface{}{
			"agentId": string(def.ID),
			"digest":  digest,
			"inputs":  map[string]interface{}(inputs),
		}
	}
}

// inputDigest fingerprints the resolved inputs. json.Marshal sorts map keys,
// so equal inputs always produce the same digest.
func inputDigest(inputs models.JSON) string {
	data, _ := json.Marshal(inputs)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
