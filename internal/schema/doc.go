// Package schema loads entity declarations written in CUE.
//
// A schema directory holds one CUE package. Each entity is declared under
// the top-level "entity" struct with its fields and the derived methods the
// application intends to call:
//
//	entity: User: {
//		id: "id"
//		fields: {
//			id:     {type: "number"}
//			email:  {type: "string"}
//			status: {type: "enum", values: ["active", "disabled"]}
//			name:   {type: "string", nullable: true}
//		}
//		methods: {
//			findByEmail: ["string"]
//			findByStatusIn: ["[]enum"]
//		}
//	}
//
// Field order is declaration order. Every method is parsed and its
// signature checked while loading, so a misspelled method name fails at
// startup with the position of its declaration.
package schema
