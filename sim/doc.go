// Package sim implements a discrete-event simulator for a mixed-mode transit
// fleet: fixed-schedule buses and flexible-route minibuses jointly serving
// time-stamped passenger trip requests between stations.
//
// The simulator is a priority-queue event loop (Engine) coupled to an online
// greedy-insertion route optimizer that periodically reassigns waiting
// passengers to minibuses. All entities are owned by the Engine in flat,
// id-keyed arenas; stations and vehicles never hold back-references to one
// another, only ids.
package sim
