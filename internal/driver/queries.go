package driver

const (
	SaveEntityQuery = `
		MERGE (n:Entity {uuid: $uuid})
		SET n.name = $name,
			n.normalized_name = $normalized_name,
			n.scope_id = $scope_id,
			n.tier = $tier,
			n.type = $type,
			n.role = $role,
			n.description = $description,
			n.aliases = $aliases,
			n.tags = $tags,
			n.provenance = $provenance,
			n.locked = $locked,
			n.created_at = $created_at,
			n.updated_at = $updated_at
		RETURN n.uuid AS uuid
	`

	DeleteEntityQuery = `
		MATCH (n:Entity {uuid: $uuid})
		DETACH DELETE n
	`

	GetScopeEntitiesQuery = `
		MATCH (n:Entity {scope_id: $scope_id})
		RETURN n.uuid AS uuid, n.name AS name, n.normalized_name AS normalized_name,
			n.tier AS tier, n.type AS type, n.role AS role, n.description AS description,
			n.aliases AS aliases, n.tags AS tags, n.provenance AS provenance,
			n.locked AS locked
	`

	LookupExternalEntitiesQuery = `
		MATCH (n:Entity)
		WHERE n.normalized_name IN $names
			AND n.scope_id <> $scope_id
			AND n.tier = 'ANCHOR'
		RETURN n.uuid AS uuid, n.name AS name, n.normalized_name AS normalized_name,
			n.scope_id AS scope_id, n.type AS type
	`

	SaveRelationQuery = `
		MATCH (source:Entity {uuid: $source_uuid})
		MATCH (target:Entity {uuid: $target_uuid})
		MERGE (source)-[e:RELATES_TO {uuid: $uuid}]->(target)
		SET e.relation_type = $relation_type,
			e.context_source = $context_source,
			e.context_snippet = $context_snippet,
			e.context_confidence = $context_confidence,
			e.valid_from = $valid_from,
			e.valid_until = $valid_until,
			e.status = $status,
			e.created_at = $created_at
		RETURN e.uuid AS uuid
	`

	GetScopeRelationsQuery = `
		MATCH (source:Entity {scope_id: $scope_id})-[e:RELATES_TO]->(target:Entity)
		RETURN e.uuid AS uuid, source.uuid AS source_uuid, target.uuid AS target_uuid,
			e.relation_type AS relation_type, e.context_source AS context_source,
			e.context_snippet AS context_snippet, e.context_confidence AS context_confidence,
			e.valid_from AS valid_from, e.valid_until AS valid_until,
			e.status AS status, e.created_at AS created_at
	`

	CloseRelationQuery = `
		MATCH ()-[e:RELATES_TO {uuid: $uuid}]->()
		SET e.status = 'HISTORIC',
			e.valid_until = $valid_until
		RETURN e.uuid AS uuid
	`

	RewireRelationSourcesQuery = `
		MATCH (loser:Entity {uuid: $loser_uuid})-[e:RELATES_TO]->(target:Entity)
		MATCH (winner:Entity {uuid: $winner_uuid})
		MERGE (winner)-[moved:RELATES_TO {uuid: e.uuid}]->(target)
		SET moved = properties(e)
		DELETE e
	`

	RewireRelationTargetsQuery = `
		MATCH (source:Entity)-[e:RELATES_TO]->(loser:Entity {uuid: $loser_uuid})
		MATCH (winner:Entity {uuid: $winner_uuid})
		MERGE (source)-[moved:RELATES_TO {uuid: e.uuid}]->(winner)
		SET moved = properties(e)
		DELETE e
	`

	SaveBlacklistEntryQuery = `
		MERGE (b:Blacklist {scope_id: $scope_id, normalized_name: $normalized_name})
		SET b.created_at = $created_at
		RETURN b.normalized_name AS normalized_name
	`

	DeleteBlacklistEntryQuery = `
		MATCH (b:Blacklist {scope_id: $scope_id, normalized_name: $normalized_name})
		DELETE b
	`

	GetBlacklistQuery = `
		MATCH (b:Blacklist {scope_id: $scope_id})
		RETURN b.normalized_name AS normalized_name
	`
)
