package executor

import "fmt"

const downstreamErrorCode = "DOWNSTREAM_SERVICE_ERROR"

// executeFetch runs one downstream fetch: service lookup, entity
// normalization, variable assembly, operation construction, dispatch, error
// integration and result merge. entities is the already-normalized working
// slice (a single object wrapped as one element is the caller's job).
func executeFetch(ec *ExecutionContext, fetch *FetchNode, entities []ResultMap) {
	source, ok := ec.Services[fetch.ServiceName]
	if !ok {
		ec.recordError(newStructuralError("unknown service %q", fetch.ServiceName))
		return
	}

	if len(entities) == 0 {
		return
	}

	variables := assembleVariables(ec.Variables, fetch.VariableUsages)

	if fetch.Requires == nil {
		executeRootFetch(ec, fetch, source, entities, variables)
		return
	}
	executeEntityFetch(ec, fetch, source, entities, variables)
}

// assembleVariables copies only the defined client variables referenced by
// variableUsages; undefined values are omitted, never passed as explicit
// null.
func assembleVariables(clientVars map[string]any, variableUsages map[string]*VariableDefinition) map[string]any {
	out := make(map[string]any, len(variableUsages))
	for name := range variableUsages {
		if v, ok := clientVars[name]; ok {
			out[name] = v
		}
	}
	return out
}

func executeRootFetch(ec *ExecutionContext, fetch *FetchNode, source DataSource, entities []ResultMap, variables map[string]any) {
	query := buildRootOperation(ec.OpContext.OperationTypeString(), fetch.SelectionSet, fetch.VariableUsages)

	reply, err := dispatch(ec, source, fetch.ServiceName, query, variables)
	if err != nil {
		ec.recordError(newStructuralError("%s", err))
		return
	}

	recordDownstreamErrors(ec, fetch.ServiceName, query, variables, reply.Errors)

	if reply.Data == nil {
		return
	}
	ec.withLock(func() {
		for _, entity := range entities {
			deepMerge(entity, reply.Data)
		}
	})
}

func executeEntityFetch(ec *ExecutionContext, fetch *FetchNode, source DataSource, entities []ResultMap, variables map[string]any) {
	if _, reserved := ec.Variables["representations"]; reserved {
		ec.recordError(newStructuralError("variable name %q is reserved in entity fetches", "representations"))
		return
	}

	reps := make([]map[string]any, 0, len(entities))
	keptIndex := make([]int, 0, len(entities))
	for i, entity := range entities {
		projected, err := Project(entity, fetch.Requires)
		if err != nil {
			ec.recordError(newStructuralError("%s", err))
			continue
		}
		if !HasTypename(projected) {
			continue
		}
		reps = append(reps, map[string]any(projected))
		keptIndex = append(keptIndex, i)
	}

	if len(reps) == 0 {
		return
	}

	parentType, _ := reps[0]["__typename"].(string)
	query := buildEntityOperation(parentType, fetch.SelectionSet, fetch.VariableUsages)

	downstreamVars := make(map[string]any, len(variables)+1)
	for k, v := range variables {
		downstreamVars[k] = v
	}
	downstreamVars["representations"] = reps

	reply, err := dispatch(ec, source, fetch.ServiceName, query, downstreamVars)
	if err != nil {
		ec.recordError(newStructuralError("%s", err))
		return
	}

	recordDownstreamErrors(ec, fetch.ServiceName, query, downstreamVars, reply.Errors)

	if reply.Data == nil {
		return
	}
	rawEntities, _ := reply.Data["_entities"].([]any)
	if len(rawEntities) != len(reps) {
		ec.recordError(newStructuralError("entity fetch to %q: expected %d entities, got %d", fetch.ServiceName, len(reps), len(rawEntities)))
		return
	}

	replies := make([]map[string]any, len(rawEntities))
	for i, raw := range rawEntities {
		if m, ok := raw.(map[string]any); ok {
			replies[i] = m
		} else if m, ok := raw.(ResultMap); ok {
			replies[i] = map[string]any(m)
		}
	}

	targets := make([]ResultMap, len(replies))
	for i := range replies {
		targets[i] = entities[keptIndex[i]]
	}
	var mergeErr error
	ec.withLock(func() {
		mergeErr = mergeEntities(targets, replies)
	})
	if mergeErr != nil {
		ec.recordError(newStructuralError("%s", mergeErr))
	}
}

func dispatch(ec *ExecutionContext, source DataSource, serviceName, query string, variables map[string]any) (*DownstreamResponse, error) {
	reply, err := source.Process(ec.Ctx, &DownstreamRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("dispatch to service %q: %w", serviceName, err)
	}
	if reply == nil {
		reply = &DownstreamResponse{}
	}
	return reply, nil
}

func recordDownstreamErrors(ec *ExecutionContext, serviceName, query string, variables map[string]any, downstreamErrors []*DownstreamError) {
	for _, de := range downstreamErrors {
		message := de.Message
		if message == "" {
			message = fmt.Sprintf("Error while fetching subquery from service %q", serviceName)
		}

		extensions := map[string]any{}
		for k, v := range de.Extensions {
			extensions[k] = v
		}
		extensions["code"] = downstreamErrorCode
		extensions["serviceName"] = serviceName
		extensions["query"] = query
		extensions["variables"] = variables

		ec.recordError(&GraphQLError{
			Message:    message,
			Path:       de.Path,
			Extensions: extensions,
		})
	}
}
