package grammar

import "sync"

// amqp091Rules describes a single AMQP 0-9-1 connection: handshake, any
// number of sequentially used channels, then connection close.
var amqp091Rules = []Definition{
	{"protocol", []string{"open-connection", "?use-connection", "close-connection"}},
	{"open-connection", []string{
		"C:protocol-header",
		"S:connection.start",
		"C:connection.start-ok",
		"*challenge",
		"S:connection.tune",
		"C:connection.tune-ok",
		"C:connection.open",
		"S:connection.open-ok",
	}},
	{"challenge", []string{"S:connection.secure", "C:connection.secure-ok"}},
	{"use-connection", []string{"*channel"}},

	{"channel", []string{"open-channel", "?use-channel", "close-channel"}},
	{"open-channel", []string{"C:channel.open", "S:channel.open-ok"}},
	{"use-channel", []string{"*channel-activity"}},
	{"channel-activity", []string{"flow-client-init | flow-server-init | functional-class"}},
	{"flow-client-init", []string{"C:channel.flow", "S:channel.flow-ok"}},
	{"flow-server-init", []string{"S:channel.flow", "C:channel.flow-ok"}},
	{"functional-class", []string{"exchange | queue | basic | tx | confirm"}},

	{"exchange", []string{"exchange-declare | exchange-delete | exchange-bind | exchange-unbind"}},
	{"exchange-declare", []string{"C:exchange.declare", "S:exchange.declare-ok"}},
	{"exchange-delete", []string{"C:exchange.delete", "S:exchange.delete-ok"}},
	{"exchange-bind", []string{"C:exchange.bind", "S:exchange.bind-ok"}},
	{"exchange-unbind", []string{"C:exchange.unbind", "S:exchange.unbind-ok"}},

	{"queue", []string{"queue-declare | queue-bind | queue-unbind | queue-purge | queue-delete"}},
	{"queue-declare", []string{"C:queue.declare", "S:queue.declare-ok"}},
	{"queue-bind", []string{"C:queue.bind", "S:queue.bind-ok"}},
	{"queue-unbind", []string{"C:queue.unbind", "S:queue.unbind-ok"}},
	{"queue-purge", []string{"C:queue.purge", "S:queue.purge-ok"}},
	{"queue-delete", []string{"C:queue.delete", "S:queue.delete-ok"}},

	{"basic", []string{"qos | consume | cancel | publish | return-failed | deliver | get | ack | reject | nack | recover-async | recover"}},
	{"qos", []string{"C:basic.qos", "S:basic.qos-ok"}},
	{"consume", []string{"C:basic.consume", "S:basic.consume-ok"}},
	{"cancel", []string{"C:basic.cancel", "S:basic.cancel-ok"}},
	{"publish", []string{"C:basic.publish", "C:basic.HEADER", "*client-body"}},
	{"client-body", []string{"C:BODY"}},
	{"return-failed", []string{"S:basic.return", "S:basic.HEADER", "*server-body"}},
	{"deliver", []string{"S:basic.deliver", "S:basic.HEADER", "*server-body"}},
	{"server-body", []string{"S:BODY"}},
	{"get", []string{"get-content | get-empty"}},
	{"get-content", []string{"C:basic.get", "S:basic.get-ok", "S:basic.HEADER", "*server-body"}},
	{"get-empty", []string{"C:basic.get", "S:basic.get-empty"}},
	{"ack", []string{"client-ack | server-ack"}},
	{"client-ack", []string{"C:basic.ack"}},
	{"server-ack", []string{"S:basic.ack"}},
	{"reject", []string{"C:basic.reject"}},
	{"nack", []string{"client-nack | server-nack"}},
	{"client-nack", []string{"C:basic.nack"}},
	{"server-nack", []string{"S:basic.nack"}},
	{"recover-async", []string{"C:basic.recover-async"}},
	{"recover", []string{"C:basic.recover", "S:basic.recover-ok"}},

	{"tx", []string{"tx-select | tx-commit | tx-rollback"}},
	{"tx-select", []string{"C:tx.select", "S:tx.select-ok"}},
	{"tx-commit", []string{"C:tx.commit", "S:tx.commit-ok"}},
	{"tx-rollback", []string{"C:tx.rollback", "S:tx.rollback-ok"}},

	{"confirm", []string{"C:confirm.select", "S:confirm.select-ok"}},

	{"close-channel", []string{"channel-close-client-init | channel-close-server-init"}},
	{"channel-close-client-init", []string{"C:channel.close", "S:channel.close-ok"}},
	{"channel-close-server-init", []string{"S:channel.close", "C:channel.close-ok"}},

	{"close-connection", []string{"client-close | server-close"}},
	{"client-close", []string{"C:connection.close", "S:connection.close-ok"}},
	{"server-close", []string{"S:connection.close", "C:connection.close-ok"}},
}

var amqp091 = sync.OnceValue(func() *Grammar {
	return MustCompile(DefaultRoot, amqp091Rules)
})

// AMQP091 returns the built-in grammar. The result is shared and read-only.
func AMQP091() *Grammar { return amqp091() }

// AMQP091Definitions returns a copy of the built-in rule table.
func AMQP091Definitions() []Definition {
	out := make([]Definition, len(amqp091Rules))
	for i, def := range amqp091Rules {
		out[i] = Definition{Name: def.Name, Steps: append([]string(nil), def.Steps...)}
	}
	return out
}
