// Package notifier announces storage changes to interested parties.
//
// Every successful collection write in the storage layer produces a Change.
// LogNotifier records it in the structured log, AMQPNotifier publishes it to
// a RabbitMQ topic exchange, and Multi fans a change out to several notifiers.
// Notification failures never roll back the write that caused them.
package notifier
