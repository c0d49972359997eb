package refstore

import (
	"testing"

	"github.com/mapleaiorg/wll/crypto"
	"github.com/mapleaiorg/wll/model"
	"github.com/stretchr/testify/require"
)

func TestCreateAndUpdateBranch(t *testing.T) {
	rs := New("main")
	w := model.WorldlineIdFromSeed([]byte("w"))

	_, err := rs.CreateBranch("main", w, model.ObjectId{1})
	require.NoError(t, err)

	_, err = rs.CreateBranch("main", w, model.ObjectId{2})
	require.ErrorIs(t, err, ErrAlreadyExists)

	updated, err := rs.UpdateBranchTip("main", model.ObjectId{9})
	require.NoError(t, err)
	require.Equal(t, model.ObjectId{9}, updated.Tip)
}

func TestCreateBranchRejectsInvalidName(t *testing.T) {
	rs := New("main")
	_, err := rs.CreateBranch("/bad", model.WorldlineId{}, model.ObjectId{})
	require.ErrorIs(t, err, model.ErrInvalidRefName)
}

func TestUpdateMissingBranchIsNotFound(t *testing.T) {
	rs := New("main")
	_, err := rs.UpdateBranchTip("missing", model.ObjectId{1})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTagsAreAppendOnly(t *testing.T) {
	rs := New("main")
	target := model.ObjectId{1}

	_, err := rs.CreateTag("v1", target, "release", nil)
	require.NoError(t, err)

	_, err = rs.CreateTag("v1", model.ObjectId{2}, "release", nil)
	require.ErrorIs(t, err, ErrTagRetargeted)

	_, err = rs.CreateTag("v1", target, "release", nil)
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestDeleteTagThenRecreateWithNewTargetSucceeds(t *testing.T) {
	rs := New("main")
	_, err := rs.CreateTag("v1", model.ObjectId{1}, "", nil)
	require.NoError(t, err)
	require.NoError(t, rs.DeleteTag("v1"))

	ref, err := rs.CreateTag("v1", model.ObjectId{2}, "", nil)
	require.NoError(t, err)
	require.Equal(t, model.ObjectId{2}, ref.Target)
}

func TestVerifyTagWithNoSignatureIsNonFatal(t *testing.T) {
	rs := New("main")
	ref, err := rs.CreateTag("v1", model.ObjectId{1}, "msg", nil)
	require.NoError(t, err)

	ok, signed, err := rs.VerifyTag(ref, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, signed)
}

func TestVerifyTagWithValidSignature(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	rs := New("main")
	target := model.ObjectId{7}
	msg := append(append([]byte{}, target[:]...), []byte("release")...)
	sig, err := crypto.Sign(priv, msg)
	require.NoError(t, err)

	ref, err := rs.CreateTag("v1", target, "release", sig)
	require.NoError(t, err)

	ok, signed, err := rs.VerifyTag(ref, pub)
	require.NoError(t, err)
	require.True(t, signed)
	require.True(t, ok)
}

func TestVerifyTagWithTamperedSignatureFails(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	rs := New("main")
	target := model.ObjectId{7}
	sig, err := crypto.Sign(priv, append(target[:], []byte("release")...))
	require.NoError(t, err)

	ref, err := rs.CreateTag("v1", target, "tampered message", sig)
	require.NoError(t, err)

	ok, signed, err := rs.VerifyTag(ref, pub)
	require.NoError(t, err)
	require.True(t, signed)
	require.False(t, ok)
}

func TestHeadDefaultsSymbolicAndCanDetach(t *testing.T) {
	rs := New("main")
	head := rs.Head()
	require.Equal(t, model.HEADSymbolic, head.Kind)
	require.Equal(t, "main", head.BranchName)

	rs.SetHeadDetached(model.ObjectId{5})
	head = rs.Head()
	require.Equal(t, model.HEADDetached, head.Kind)
	require.Equal(t, model.ObjectId{5}, head.Receipt)
}

func TestSetHeadSymbolicRequiresExistingBranch(t *testing.T) {
	rs := New("main")
	err := rs.SetHeadSymbolic("feature")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = rs.CreateBranch("feature", model.WorldlineId{}, model.ObjectId{})
	require.NoError(t, err)
	require.NoError(t, rs.SetHeadSymbolic("feature"))
}

func TestRemoteTrackingRefsAreFreelyRetargeted(t *testing.T) {
	rs := New("main")
	rs.CreateRemote("origin", "main", model.ObjectId{1})
	ref, ok := rs.GetRemote("origin", "main")
	require.True(t, ok)
	require.Equal(t, model.ObjectId{1}, ref.Tip)

	rs.CreateRemote("origin", "main", model.ObjectId{2})
	ref, ok = rs.GetRemote("origin", "main")
	require.True(t, ok)
	require.Equal(t, model.ObjectId{2}, ref.Tip)
}
