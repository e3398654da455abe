// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package program

import "fmt"

// VarKind distinguishes the storage locations tracked by the analysis.
type VarKind uint8

const (
	// Local is a procedure-local variable slot (including formal parameters)
	Local VarKind = iota
	// Field is an instance or static field, identified by its declaring type and name
	Field
	// ArrayElem is the bucket of all elements of arrays or slices of some element type
	ArrayElem
	// Object is an object owned by code outside the program (e.g. a library receiver), identified by its type
	Object
)

func (k VarKind) String() string {
	switch k {
	case Local:
		return "local"
	case Field:
		return "field"
	case ArrayElem:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// anyElemTypes are the element type names that may alias elements of any other type.
var anyElemTypes = map[string]bool{"any": true, "interface{}": true}

// Variable is the identity of a storage location. Variables are comparable values and can be used as map keys.
type Variable struct {
	Kind VarKind

	// Name is the local name, the field name, the element type (ArrayElem) or the static type of the object (Object)
	Name string

	// Scope is the owner of the variable: the procedure (and declaration site) for locals, the declaring type for
	// fields. It is empty for array elements and objects.
	Scope string

	// Exact is only meaningful for objects: it is true when the access is qualified by the type itself rather
	// than dispatched on an instance, in which case only Name is a possible concrete type.
	Exact bool
}

// LocalVar returns the local variable name declared in scope.
func LocalVar(scope, name string) Variable {
	return Variable{Kind: Local, Name: name, Scope: scope}
}

// FieldVar returns the field variable declaringType.name
func FieldVar(declaringType, name string) Variable {
	return Variable{Kind: Field, Name: name, Scope: declaringType}
}

// ArrayVar returns the array element bucket for the element type.
func ArrayVar(elemType string) Variable {
	return Variable{Kind: ArrayElem, Name: elemType}
}

// ObjectVar returns the variable for an externally owned object of static type typ.
func ObjectVar(typ string, exact bool) Variable {
	return Variable{Kind: Object, Name: typ, Exact: exact}
}

// IsZero returns true if v is the zero variable, which stands for "no variable".
func (v Variable) IsZero() bool {
	return v == Variable{}
}

// IsHeap returns true for the variables that the propagator does not track: fields, array elements and objects.
func (v Variable) IsHeap() bool {
	return v.Kind != Local
}

// MayEqual returns true if v and w may be aliases of the same storage location.
// Objects are only equal when identical; the pairing of object accesses uses receiver type sets instead (see
// Program.PossibleTypes).
func (v Variable) MayEqual(w Variable) bool {
	if v.Kind != w.Kind {
		return false
	}
	switch v.Kind {
	case ArrayElem:
		return v.Name == w.Name || anyElemTypes[v.Name] || anyElemTypes[w.Name]
	case Object:
		return v.Name == w.Name
	default:
		return v.Name == w.Name && v.Scope == w.Scope
	}
}

// Less is a total order on variables, used to make iteration deterministic.
func (v Variable) Less(w Variable) bool {
	if v.Kind != w.Kind {
		return v.Kind < w.Kind
	}
	if v.Scope != w.Scope {
		return v.Scope < w.Scope
	}
	if v.Name != w.Name {
		return v.Name < w.Name
	}
	return !v.Exact && w.Exact
}

func (v Variable) String() string {
	switch v.Kind {
	case Local:
		return v.Name
	case Field:
		return v.Scope + "." + v.Name
	case ArrayElem:
		return "[]" + v.Name
	default:
		if v.Exact {
			return "obj(" + v.Name + ")"
		}
		return "obj(" + v.Name + "+)"
	}
}
