package spec

import "sort"

// MethodID identifies a remote operation by class and method index.
type MethodID struct {
	Class  uint16
	Method uint16
}

type class struct {
	name    string
	methods map[uint16]string
}

var classes = map[uint16]class{
	ClassConnection: {name: "connection", methods: map[uint16]string{
		10: "connection.start",
		11: "connection.start-ok",
		20: "connection.secure",
		21: "connection.secure-ok",
		30: "connection.tune",
		31: "connection.tune-ok",
		40: "connection.open",
		41: "connection.open-ok",
		50: "connection.close",
		51: "connection.close-ok",
		60: "connection.blocked",
		61: "connection.unblocked",
	}},
	ClassChannel: {name: "channel", methods: map[uint16]string{
		10: "channel.open",
		11: "channel.open-ok",
		20: "channel.flow",
		21: "channel.flow-ok",
		40: "channel.close",
		41: "channel.close-ok",
	}},
	ClassExchange: {name: "exchange", methods: map[uint16]string{
		10: "exchange.declare",
		11: "exchange.declare-ok",
		20: "exchange.delete",
		21: "exchange.delete-ok",
		30: "exchange.bind",
		31: "exchange.bind-ok",
		40: "exchange.unbind",
		51: "exchange.unbind-ok",
	}},
	ClassQueue: {name: "queue", methods: map[uint16]string{
		10: "queue.declare",
		11: "queue.declare-ok",
		20: "queue.bind",
		21: "queue.bind-ok",
		30: "queue.purge",
		31: "queue.purge-ok",
		40: "queue.delete",
		41: "queue.delete-ok",
		50: "queue.unbind",
		51: "queue.unbind-ok",
	}},
	ClassBasic: {name: "basic", methods: map[uint16]string{
		10:  "basic.qos",
		11:  "basic.qos-ok",
		20:  "basic.consume",
		21:  "basic.consume-ok",
		30:  "basic.cancel",
		31:  "basic.cancel-ok",
		40:  "basic.publish",
		50:  "basic.return",
		60:  "basic.deliver",
		70:  "basic.get",
		71:  "basic.get-ok",
		72:  "basic.get-empty",
		80:  "basic.ack",
		90:  "basic.reject",
		100: "basic.recover-async",
		110: "basic.recover",
		111: "basic.recover-ok",
		120: "basic.nack",
	}},
	ClassConfirm: {name: "confirm", methods: map[uint16]string{
		10: "confirm.select",
		11: "confirm.select-ok",
	}},
	ClassTx: {name: "tx", methods: map[uint16]string{
		10: "tx.select",
		11: "tx.select-ok",
		20: "tx.commit",
		21: "tx.commit-ok",
		30: "tx.rollback",
		31: "tx.rollback-ok",
	}},
}

var methodsByName = func() map[string]MethodID {
	out := make(map[string]MethodID)
	for classID, c := range classes {
		for methodID, name := range c.methods {
			out[name] = MethodID{Class: classID, Method: methodID}
		}
	}
	return out
}()

// MethodName resolves a class/method pair to its dotted name.
func MethodName(classID, methodID uint16) (string, bool) {
	c, ok := classes[classID]
	if !ok {
		return "", false
	}
	name, ok := c.methods[methodID]
	return name, ok
}

// ClassName resolves a class identifier to its name.
func ClassName(classID uint16) (string, bool) {
	c, ok := classes[classID]
	return c.name, ok
}

// LookupMethod is the inverse of MethodName.
func LookupMethod(name string) (MethodID, bool) {
	id, ok := methodsByName[name]
	return id, ok
}

// MethodNames lists every known method name, sorted.
func MethodNames() []string {
	names := make([]string, 0, len(methodsByName))
	for name := range methodsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
