package taskqueue

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueAdd_InsideTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectBegin()

	tx, err := db.Begin()
	require.NoError(t, err)

	fake := newFakeTasks()
	q := NewQueue("mail", &fakeRepoManager{tasks: fake})

	params := map[string]string{common.UsernameParam: "alice"}
	task, err := q.Add(context.Background(), tx, TaskOptions{URL: "/task/mail/activate", Params: params})
	require.NoError(t, err)

	assert.Equal(t, "mail", task.Queue)
	assert.Equal(t, "/task/mail/activate", task.URL)
	assert.Equal(t, "alice", task.Params[common.UsernameParam])
	require.Len(t, fake.created, 1)

	params[common.UsernameParam] = "mallory"
	assert.Equal(t, "alice", fake.created[0].Params[common.UsernameParam], "params are copied")
}

func TestQueueAdd_RejectsNonTransactionalHandle(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fake := newFakeTasks()
	q := NewQueue("mail", &fakeRepoManager{tasks: fake})

	_, err = q.Add(context.Background(), db, TaskOptions{URL: "/x"})
	require.ErrorIs(t, err, common.ErrorConstraint)
	assert.Empty(t, fake.created)
}

func TestQueueAdd_Errors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	fake := newFakeTasks()
	q := NewQueue("mail", &fakeRepoManager{tasks: fake})

	_, err = q.Add(context.Background(), tx, TaskOptions{})
	require.ErrorIs(t, err, common.ErrorValidation)

	fake.createErr = errBoom
	_, err = q.Add(context.Background(), tx, TaskOptions{URL: "/x"})
	require.ErrorIs(t, err, errBoom)
	require.ErrorContains(t, err, "error enqueuing task")
}

func TestQueuePending(t *testing.T) {
	fake := newFakeTasks()
	fake.created = append(fake.created, nil, nil)
	q := NewQueue("mail", &fakeRepoManager{tasks: fake})

	n, err := q.Pending(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "mail", q.Name())
}
