// Package domain defines the core business entities of the task
// orchestration system and their validation rules. Entities are plain
// structs with no persistence or transport concerns; all mutations to
// them flow through the service layer.
package domain
