package merger

import schema "github.com/graphplan/graphplan/internal/schema"

const animalsSDL = `
type Query {
  animal: Animal
  pet: Pet
  a(v: Int, l: [Int], o: Input): String
  b: String
  c: String
}

input Input {
  p: Int
  q: Int
}

interface Animal {
  name: String
}

type Dog implements Animal {
  name: String
  barks: Boolean
}

type Cat implements Animal {
  name: String
  age: Int
}

type Pet {
  name: String
  age: Int
}
`

func newSchemaWithQueryType(query *schema.Type, additional ...*schema.Type) *schema.Schema {
	sch := schema.NewSchema("")
	if query != nil {
		sch.SetQueryType(query.Name)
		sch.AddType(query)
	}
	for _, t := range additional {
		sch.AddType(t)
	}
	return sch
}

func newObjectType(name string, fields ...*schema.Field) *schema.Type {
	t := schema.NewType(name, schema.TypeKindObject, "")
	for _, field := range fields {
		t.AddField(field)
	}
	return t
}
